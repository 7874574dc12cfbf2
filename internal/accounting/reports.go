package accounting

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AccountBalance models a ledger account with aggregated postings.
type AccountBalance struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Type   AccountType     `json:"type"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// Closing computes the debit-positive closing balance.
func (a AccountBalance) Closing() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// TrialBalanceRow is one account inside a group.
type TrialBalanceRow struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Closing decimal.Decimal `json:"closing"`
}

// TrialBalanceGroup aggregates accounts of one type.
type TrialBalanceGroup struct {
	Type     AccountType       `json:"type"`
	Accounts []TrialBalanceRow `json:"accounts"`
	Debit    decimal.Decimal   `json:"debit"`
	Credit   decimal.Decimal   `json:"credit"`
}

// TrialBalance is the ledger summary served over HTTP.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

var typeOrder = map[AccountType]int{
	AccountTypeAsset:     0,
	AccountTypeLiability: 1,
	AccountTypeEquity:    2,
	AccountTypeRevenue:   3,
	AccountTypeExpense:   4,
}

// BuildTrialBalance groups account totals by account type.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	groups := make(map[AccountType]*TrialBalanceGroup)
	tb := TrialBalance{Groups: make([]TrialBalanceGroup, 0)}
	for _, acc := range accounts {
		grp, ok := groups[acc.Type]
		if !ok {
			grp = &TrialBalanceGroup{Type: acc.Type, Accounts: make([]TrialBalanceRow, 0)}
			groups[acc.Type] = grp
		}
		grp.Accounts = append(grp.Accounts, TrialBalanceRow{
			Code:    acc.Code,
			Name:    acc.Name,
			Debit:   acc.Debit,
			Credit:  acc.Credit,
			Closing: acc.Closing(),
		})
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
		tb.TotalDebit = tb.TotalDebit.Add(acc.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(acc.Credit)
	}
	for _, grp := range groups {
		sort.Slice(grp.Accounts, func(i, j int) bool { return grp.Accounts[i].Code < grp.Accounts[j].Code })
		tb.Groups = append(tb.Groups, *grp)
	}
	sort.Slice(tb.Groups, func(i, j int) bool {
		return typeOrder[tb.Groups[i].Type] < typeOrder[tb.Groups[j].Type]
	})
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb
}
