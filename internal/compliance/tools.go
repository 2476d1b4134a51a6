// internal/compliance/tools.go
package compliance

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"compliance-agent/internal/models"
)

// ErrUnknownTool marks a lookup for a tool name the registry does not
// hold. Callers match it with errors.Is.
var ErrUnknownTool = errors.New("unknown tool")

// ToolParams carries the arguments for one tool invocation.
type ToolParams map[string]interface{}

func (p ToolParams) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func (p ToolParams) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Items       string `json:"items,omitempty"`
}

// Tool is a compliance analysis capability exposed to API clients.
type Tool struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters"`
	Required    []string             `json:"required"`

	execute func(p ToolParams) string
}

// KnowledgeSearcher backs the searchRegulations tool.
type KnowledgeSearcher interface {
	Search(query string, limit int) []models.KnowledgeHit
}

// Registry holds the compliance tool set.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry builds the tool set. The knowledge store backs
// regulation search; the remaining tools answer from curated
// jurisdiction summaries.
func NewRegistry(knowledge KnowledgeSearcher) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}

	r.register(&Tool{
		Name:        "analyzeKYC",
		Description: "Analyze Know Your Customer (KYC) compliance requirements and procedures for a specific jurisdiction and business type",
		Parameters: map[string]ParamSpec{
			"jurisdiction": {Type: "string", Description: "The jurisdiction to analyze KYC requirements for (e.g., US, EU, UK, Singapore)"},
			"businessType": {Type: "string", Description: "Type of crypto business (exchange, wallet, lending, staking, custodian, etc.)"},
			"customerBase": {Type: "string", Description: "Target customer base (retail, institutional, both)"},
		},
		Required: []string{"jurisdiction", "businessType"},
		execute:  analyzeKYC,
	})

	r.register(&Tool{
		Name:        "analyzeAML",
		Description: "Analyze Anti-Money Laundering (AML) compliance requirements and procedures",
		Parameters: map[string]ParamSpec{
			"jurisdiction":      {Type: "string", Description: "The jurisdiction to analyze AML requirements for"},
			"transactionVolume": {Type: "string", Description: "Expected transaction volume (low, medium, high, very-high)"},
			"riskProfile":       {Type: "string", Description: "Business risk profile (low, medium, high)"},
		},
		Required: []string{"jurisdiction", "transactionVolume"},
		execute:  analyzeAML,
	})

	r.register(&Tool{
		Name:        "analyzeRegulatory",
		Description: "Analyze general regulatory requirements for crypto businesses in a jurisdiction",
		Parameters: map[string]ParamSpec{
			"jurisdiction":   {Type: "string", Description: "The jurisdiction to analyze"},
			"services":       {Type: "array", Description: "List of services offered (trading, staking, lending, custody, etc.)", Items: "string"},
			"operatingModel": {Type: "string", Description: "Operating model (centralized, decentralized, hybrid)"},
		},
		Required: []string{"jurisdiction", "services"},
		execute:  analyzeRegulatory,
	})

	r.register(&Tool{
		Name:        "assessRisk",
		Description: "Assess compliance risk level based on current practices and identify gaps",
		Parameters: map[string]ParamSpec{
			"currentPractices": {Type: "string", Description: "Description of current compliance practices"},
			"jurisdiction":     {Type: "string", Description: "The jurisdiction"},
			"existingControls": {Type: "array", Description: "List of existing compliance controls", Items: "string"},
		},
		Required: []string{"currentPractices", "jurisdiction"},
		execute:  assessRisk,
	})

	r.register(&Tool{
		Name:        "searchRegulations",
		Description: "Search the compliance knowledge base for specific regulations and requirements",
		Parameters: map[string]ParamSpec{
			"query":    {Type: "string", Description: "Search query for compliance information"},
			"category": {Type: "string", Description: "Filter by category (KYC, AML, Licensing, Services, Sanctions)"},
		},
		Required: []string{"query"},
		execute: func(p ToolParams) string {
			return searchRegulations(knowledge, p)
		},
	})

	r.register(&Tool{
		Name:        "checkSanctions",
		Description: "Check sanctions and screening requirements for a jurisdiction",
		Parameters: map[string]ParamSpec{
			"jurisdiction": {Type: "string", Description: "The jurisdiction to check sanctions for"},
			"entityType":   {Type: "string", Description: "Type of entity (individual, business, exchange)"},
		},
		Required: []string{"jurisdiction"},
		execute:  checkSanctions,
	})

	r.register(&Tool{
		Name:        "assessLicensing",
		Description: "Assess licensing requirements for crypto businesses",
		Parameters: map[string]ParamSpec{
			"jurisdiction":     {Type: "string", Description: "The jurisdiction"},
			"services":         {Type: "array", Description: "Services offered", Items: "string"},
			"capitalAvailable": {Type: "string", Description: "Available capital (low, medium, high)"},
		},
		Required: []string{"jurisdiction", "services"},
		execute:  assessLicensing,
	})

	return r
}

func (r *Registry) register(t *Tool) {
	r.tools[t.Name] = t
}

// List returns the tool definitions sorted by name.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named tool. Missing required parameters and
// unknown tool names both produce an error.
func (r *Registry) Execute(name string, params ToolParams) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	for _, req := range tool.Required {
		if _, present := params[req]; !present {
			return "", fmt.Errorf("tool %s missing required parameter: %s", name, req)
		}
	}
	return tool.execute(params), nil
}

// ==========================
// Tool executors
// ==========================

func analyzeKYC(p ToolParams) string {
	businessType := p.String("businessType")
	jurisdiction := p.String("jurisdiction")

	switch jurisdiction {
	case "US":
		return fmt.Sprintf(`KYC Requirements for %s in United States:
- Customer Identification Program (CIP) mandatory
- Verify identity with government-issued ID (driver's license, passport)
- Collect: Full name, DOB, address, SSN/Tax ID
- Beneficial ownership verification for entities (UBO)
- Risk-based Customer Due Diligence (CDD)
- Enhanced Due Diligence (EDD) for high-risk customers
- Documentation retention: Minimum 5 years
- Ongoing monitoring and updating of customer information
- Politically Exposed Persons (PEP) screening
- Sanctions list screening (OFAC)`, businessType)
	case "EU":
		return fmt.Sprintf(`KYC Requirements for %s in European Union:
- Customer Due Diligence (CDD) under AMLD5
- Identity verification with government-issued ID
- Beneficial ownership register access
- Enhanced Due Diligence for high-risk jurisdictions
- PEP screening and monitoring
- GDPR compliance for data handling
- Documentation retention: 5 years minimum
- Risk-based approach implementation
- Ongoing transaction monitoring
- Sanctions screening (EU, UN lists)`, businessType)
	case "UK":
		return fmt.Sprintf(`KYC Requirements for %s in United Kingdom:
- Customer Due Diligence under Money Laundering Regulations 2017
- Identity verification with government-issued ID
- Beneficial ownership verification
- Enhanced due diligence for high-risk customers
- PEP screening
- Sanctions list screening (UK, UN, EU lists)
- Documentation retention: 5 years
- Ongoing monitoring requirements
- FCA compliance for regulated activities`, businessType)
	default:
		return fmt.Sprintf("KYC Requirements for %s in %s: Standard international KYC procedures apply", businessType, jurisdiction)
	}
}

func analyzeAML(p ToolParams) string {
	threshold := "10,000"
	if p.String("transactionVolume") == "high" {
		threshold = "5,000"
	}

	return fmt.Sprintf(`AML Compliance for %s:
- Transaction Monitoring: Real-time monitoring of all transactions
- Suspicious Activity Reporting (SAR): File for suspicious transactions
- Currency Transaction Reports (CTR): Report cash transactions over threshold
- Transaction Threshold: $%s for SAR
- Staff Training: Mandatory AML training for all employees
- Compliance Officer: Designate AML compliance officer
- Written Policies: Document AML procedures and controls
- Independent Audit: Annual compliance audit recommended
- Customer Risk Categorization: Implement risk scoring
- Ongoing Due Diligence: Monitor customer activity continuously
- Sanctions Screening: Screen all customers and transactions
- Record Keeping: Maintain transaction records for 5+ years`, p.String("jurisdiction"), threshold)
}

func analyzeRegulatory(p ToolParams) string {
	services := strings.Join(p.Strings("services"), ", ")

	return fmt.Sprintf(`Regulatory Requirements for %s:
- Services Offered: %s
- Licensing: May require money transmitter or crypto asset service provider license
- Consumer Protection: Implement consumer protection measures
- Data Privacy: Comply with local data protection laws (GDPR, CCPA, etc.)
- Operational Resilience: Implement business continuity and disaster recovery
- Incident Reporting: Report security incidents to regulators
- Regular Audits: Conduct compliance audits
- Capital Requirements: May need to maintain minimum capital
- Insurance: Consider cyber liability and E&O insurance
- Regulatory Reporting: Submit regular compliance reports`, p.String("jurisdiction"), services)
}

func assessRisk(p ToolParams) string {
	controls := p.Strings("existingControls")
	controlsText := "No existing controls documented"
	if len(controls) > 0 {
		controlsText = fmt.Sprintf("Existing Controls: %s", strings.Join(controls, ", "))
	}

	return fmt.Sprintf(`Risk Assessment for %s:
%s
Current Practices: %s

Risk Analysis:
- Compliance Maturity: Assess against regulatory expectations
- Control Gaps: Identify missing controls
- Remediation Priority: High, Medium, Low
- Timeline: Develop remediation timeline
- Resource Requirements: Estimate resources needed
- Ongoing Monitoring: Implement continuous monitoring

Recommendations:
1. Conduct full compliance audit
2. Document all policies and procedures
3. Implement automated monitoring systems
4. Establish compliance training program
5. Schedule regular compliance reviews`, p.String("jurisdiction"), controlsText, p.String("currentPractices"))
}

func searchRegulations(knowledge KnowledgeSearcher, p ToolParams) string {
	query := p.String("query")
	hits := knowledge.Search(query, 5)
	if len(hits) == 0 {
		return fmt.Sprintf("No specific regulations found for %q. Please consult with a compliance expert.", query)
	}

	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		doc := hit.Doc
		blocks = append(blocks, fmt.Sprintf("[%s - %s] %s\n%s...", doc.Category, doc.Jurisdiction, doc.Title, truncate(doc.Content, 400)))
	}
	return fmt.Sprintf("Regulations found for %q:\n\n%s", query, strings.Join(blocks, "\n\n"))
}

func checkSanctions(p ToolParams) string {
	return fmt.Sprintf(`Sanctions Screening Requirements for %s:
- Screen customers against applicable sanctions lists (OFAC SDN, EU consolidated, UN Security Council)
- Screen at onboarding and on an ongoing basis
- Re-screen when lists update
- Block and report matches to the relevant authority
- Document screening procedures and escalation paths
- Retain screening records for a minimum of 5 years`, p.String("jurisdiction"))
}

func assessLicensing(p ToolParams) string {
	services := strings.Join(p.Strings("services"), ", ")

	return fmt.Sprintf(`Licensing Assessment for %s in %s:
- Determine whether offered services trigger licensing (money transmission, custody, exchange operation)
- Identify the competent regulator and applicable license category
- Review minimum capital and fit-and-proper requirements
- Prepare compliance program documentation for the application
- Budget for application fees and ongoing supervisory costs
- Plan for periodic reporting and examination obligations`, services, p.String("jurisdiction"))
}
