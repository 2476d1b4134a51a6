// internal/knowledge/docs.go
package knowledge

import "compliance-agent/internal/models"

// seedDocs is the curated regulatory document set. Loaded once at process
// start and never mutated.
var seedDocs = []models.KnowledgeDoc{
	{
		ID:    "kyc-us",
		Title: "KYC Requirements - United States",
		Content: `Know Your Customer (KYC) requirements in the US are governed by FinCEN and the Bank Secrecy Act.

Key requirements:
- Customer identification program (CIP) required
- Verify identity with government-issued ID
- Collect name, DOB, address, SSN
- Beneficial ownership information for entities
- Risk-based approach to customer due diligence
- Documentation retention for 5+ years
- Enhanced due diligence for high-risk customers
- Ongoing monitoring of customer activity`,
		Category:     "KYC",
		Jurisdiction: "US",
		Tags:         []string{"kyc", "identification", "us-regulation"},
	},
	{
		ID:    "aml-us",
		Title: "AML Compliance - United States",
		Content: `Anti-Money Laundering (AML) requirements under the Bank Secrecy Act and USA PATRIOT Act.

Key requirements:
- Suspicious Activity Report (SAR) filing for transactions over $5,000
- Currency Transaction Report (CTR) for cash transactions over $10,000
- Transaction monitoring and analysis
- Staff training on AML procedures
- Independent audit of AML compliance
- Designation of AML compliance officer
- Written AML policies and procedures
- Customer risk categorization`,
		Category:     "AML",
		Jurisdiction: "US",
		Tags:         []string{"aml", "money-laundering", "us-regulation"},
	},
	{
		ID:    "kyc-eu",
		Title: "KYC Requirements - European Union",
		Content: `EU KYC requirements under the 5th Anti-Money Laundering Directive (AMLD5).

Key requirements:
- Customer due diligence (CDD) mandatory
- Beneficial ownership register access
- Enhanced due diligence for high-risk jurisdictions
- Politically exposed persons (PEP) screening
- GDPR compliance for data handling
- Documentation retention for 5 years
- Risk-based approach implementation
- Ongoing transaction monitoring`,
		Category:     "KYC",
		Jurisdiction: "EU",
		Tags:         []string{"kyc", "eu-regulation", "gdpr"},
	},
	{
		ID:    "crypto-licensing",
		Title: "Crypto Business Licensing",
		Content: `Licensing requirements for cryptocurrency businesses vary by jurisdiction.

Key considerations:
- Money transmitter licenses in US states
- Crypto asset service provider (CASP) registration in EU
- Regulatory sandbox programs
- Application requirements and fees
- Compliance officer designation
- Capital requirements
- Insurance requirements
- Regular reporting obligations`,
		Category:     "Licensing",
		Jurisdiction: "Multiple",
		Tags:         []string{"licensing", "regulatory", "business-setup"},
	},
	{
		ID:    "staking-lending",
		Title: "Staking and Lending Compliance",
		Content: `Regulatory considerations for crypto staking and lending services.

Key requirements:
- Securities law compliance if applicable
- Consumer protection disclosures
- Risk warnings for yield products
- Custody and segregation of customer assets
- Insurance coverage
- Audit requirements
- Operational resilience standards
- Fraud prevention measures`,
		Category:     "Services",
		Jurisdiction: "Multiple",
		Tags:         []string{"staking", "lending", "services"},
	},
	{
		ID:    "sanctions-screening",
		Title: "Sanctions and Screening Requirements",
		Content: `Compliance with international sanctions programs and screening requirements.

Key requirements:
- OFAC sanctions list screening
- UN sanctions compliance
- EU sanctions list screening
- Ongoing transaction monitoring
- Automated screening tools
- False positive management
- Blocked transaction procedures
- Reporting of violations`,
		Category:     "Sanctions",
		Jurisdiction: "Multiple",
		Tags:         []string{"sanctions", "screening", "compliance"},
	},
}
