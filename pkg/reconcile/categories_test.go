package reconcile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMapCategory(t *testing.T) {
	mapper := NewCategoryMapper()

	tests := []struct {
		name        string
		rawCategory string
		isIncome    bool
		wantAccount string
		wantType    string
	}{
		{
			name:        "income ignores category",
			rawCategory: "Travel",
			isIncome:    true,
			wantAccount: "Sales",
			wantType:    "Income",
		},
		{
			name:        "exact keyword",
			rawCategory: "Travel",
			wantAccount: "Travel",
			wantType:    "Expense",
		},
		{
			name:        "substring match",
			rawCategory: "Food and Restaurants",
			wantAccount: "Meals and Entertainment",
			wantType:    "Expense",
		},
		{
			name:        "case insensitive",
			rawCategory: "SOFTWARE",
			wantAccount: "Software Subscriptions",
			wantType:    "Expense",
		},
		{
			name:        "no match falls back",
			rawCategory: "Quantum Widgets",
			wantAccount: "Uncategorized Expense",
			wantType:    "Expense",
		},
		{
			name:        "empty category falls back",
			rawCategory: "",
			wantAccount: "Uncategorized Expense",
			wantType:    "Expense",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, accType, _ := mapper.Map(tt.rawCategory, tt.isIncome)
			if account != tt.wantAccount {
				t.Errorf("account = %q, want %q", account, tt.wantAccount)
			}
			if accType != tt.wantType {
				t.Errorf("type = %q, want %q", accType, tt.wantType)
			}
		})
	}
}

func TestMapIsDeterministic(t *testing.T) {
	mapper := NewCategoryMapper()
	a1, t1, s1 := mapper.Map("Cloud Services", false)
	a2, t2, s2 := mapper.Map("Cloud Services", false)
	if a1 != a2 || t1 != t2 || s1 != s2 {
		t.Errorf("mapping not deterministic: (%s,%s,%s) vs (%s,%s,%s)", a1, t1, s1, a2, t2, s2)
	}
}

func TestMapperFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	content := `rules:
  - keyword: travel
    account: Corporate Travel
    type: Expense
    subtype: Travel
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	mapper, err := NewCategoryMapperFromFile(path)
	if err != nil {
		t.Fatalf("NewCategoryMapperFromFile failed: %v", err)
	}

	account, _, _ := mapper.Map("Travel", false)
	if account != "Corporate Travel" {
		t.Errorf("account = %q, want file rule to override the default", account)
	}

	// Untouched defaults still work.
	account, _, _ = mapper.Map("Rent payment", false)
	if account != "Rent or Lease" {
		t.Errorf("account = %q, want Rent or Lease", account)
	}
}

func TestMapperFromFileMixedCaseKeyword(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	content := `rules:
  - keyword: Consulting
    account: Consulting Fees
    type: Expense
    subtype: LegalProfessionalFees
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	mapper, err := NewCategoryMapperFromFile(path)
	if err != nil {
		t.Fatalf("NewCategoryMapperFromFile failed: %v", err)
	}

	// The "service" substring would otherwise hand this to the built-in
	// Legal & Professional Fees rule.
	account, _, _ := mapper.Map("consulting services", false)
	if account != "Consulting Fees" {
		t.Errorf("account = %q, want %q", account, "Consulting Fees")
	}

	account, _, _ = mapper.Map("CONSULTING", false)
	if account != "Consulting Fees" {
		t.Errorf("account = %q, want file rule to match case-insensitively", account)
	}
}

func TestMapperFromFileMissing(t *testing.T) {
	if _, err := NewCategoryMapperFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing mapping file")
	}
}
