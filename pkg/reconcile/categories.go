package reconcile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps a merchant-category keyword to a ledger account.
type CategoryRule struct {
	Keyword string `yaml:"keyword"`
	Account string `yaml:"account"`
	Type    string `yaml:"type"`
	Subtype string `yaml:"subtype"`
}

// defaultRules is the built-in expense taxonomy. Order matters: rules are
// matched top to bottom and the first hit wins.
var defaultRules = []CategoryRule{
	{"advertising", "Advertising", "Expense", "Advertising"},
	{"marketing", "Advertising", "Expense", "Advertising"},
	{"travel", "Travel", "Expense", "Travel"},
	{"restaurant", "Meals and Entertainment", "Expense", "MealsAndEntertainment"},
	{"software", "Software Subscriptions", "Expense", "OfficeSupplies"},
	{"cloud", "Software Subscriptions", "Expense", "OfficeSupplies"},
	{"utilities", "Utilities", "Expense", "Utilities"},
	{"rent", "Rent or Lease", "Expense", "RentOrLeaseOfBuildings"},
	{"office", "Office Supplies", "Expense", "OfficeSupplies"},
	{"insurance", "Insurance", "Expense", "Insurance"},
	{"fee", "Bank Charges", "Expense", "BankCharges"},
	{"service", "Legal & Professional Fees", "Expense", "LegalProfessionalFees"},
}

// Income always maps to the canonical sales account regardless of category.
var incomeAccount = CategoryRule{Account: "Sales", Type: "Income", Subtype: "SalesOfProductIncome"}

// Uncategorized is the fallback when no expense keyword matches.
var uncategorized = CategoryRule{Account: "Uncategorized Expense", Type: "Expense", Subtype: "UncategorizedExpense"}

// CategoryMapper resolves raw merchant categories into ledger account
// names. Mapping is pure and deterministic: identical input always yields
// identical output, which AccountProvisioner's cache key relies on.
type CategoryMapper struct {
	rules []CategoryRule
}

// NewCategoryMapper returns a mapper with the built-in rule table.
func NewCategoryMapper() *CategoryMapper {
	return &CategoryMapper{rules: defaultRules}
}

// NewCategoryMapperFromFile loads extra rules from a YAML file. Loaded
// rules are matched before the built-in table, so a file entry with an
// existing keyword overrides the default.
func NewCategoryMapperFromFile(path string) (*CategoryMapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category mapping: %w", err)
	}

	var file struct {
		Rules []CategoryRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category mapping: %w", err)
	}

	rules := make([]CategoryRule, 0, len(file.Rules)+len(defaultRules))
	for _, rule := range file.Rules {
		// Matching lowercases the input category, so keywords must be
		// lowercase too or a file rule could never match.
		rule.Keyword = strings.ToLower(rule.Keyword)
		rules = append(rules, rule)
	}
	rules = append(rules, defaultRules...)
	return &CategoryMapper{rules: rules}, nil
}

// Map returns (accountName, accountType, accountSubtype) for a raw
// category. Inflows always map to the canonical sales account. Expense
// categories are matched case-insensitively by substring; no match falls
// back to the uncategorized expense account.
func (m *CategoryMapper) Map(rawCategory string, isIncome bool) (name, accountType, subtype string) {
	if isIncome {
		return incomeAccount.Account, incomeAccount.Type, incomeAccount.Subtype
	}

	cat := strings.ToLower(rawCategory)
	for _, rule := range m.rules {
		if strings.Contains(cat, rule.Keyword) {
			return rule.Account, rule.Type, rule.Subtype
		}
	}
	return uncategorized.Account, uncategorized.Type, uncategorized.Subtype
}
