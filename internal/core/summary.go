package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// PieSlice is one category (or the synthetic "Other" bucket) of the
	// monthly expense chart.
	PieSlice struct {
		CategoryID string          `json:"categoryId,omitempty"`
		Name       string          `json:"name"`
		Label      string          `json:"label"`
		Icon       string          `json:"icon,omitempty"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage float64         `json:"percentage"`
		Color      string          `json:"color,omitempty"`
		Other      bool            `json:"other,omitempty"`
	}

	DailyPoint struct {
		Day    int             `json:"day"`
		Amount decimal.Decimal `json:"amount"`
	}

	// DayGroup holds the transactions of one calendar day, newest first.
	DayGroup struct {
		Date         string          `json:"date"`
		Day          int             `json:"day"`
		Transactions []Transaction   `json:"transactions"`
		ExpenseTotal decimal.Decimal `json:"expenseTotal"`
		IncomeTotal  decimal.Decimal `json:"incomeTotal"`
	}

	CategoryTotals struct {
		ByCategory map[string]decimal.Decimal `json:"byCategoryTotals"`
		Expense    decimal.Decimal            `json:"totalExpense"`
		Income     decimal.Decimal            `json:"income"`
		Balance    decimal.Decimal            `json:"balance"`
	}

	Chart struct {
		PieSlices     []PieSlice      `json:"pieSlices"`
		DailySeries   []DailyPoint    `json:"dailySeries"`
		TotalExpense  decimal.Decimal `json:"totalExpense"`
		AveragePerDay decimal.Decimal `json:"averagePerDay"`
	}

	BudgetStatus struct {
		Budget         decimal.Decimal `json:"budget"`
		Spend          decimal.Decimal `json:"spend"`
		Remaining      decimal.Decimal `json:"remaining"`
		Progress       float64         `json:"progress"`
		OverBudget     bool            `json:"overBudget"`
		DisplayPercent int             `json:"displayPercent"`
	}

	BudgetCard struct {
		CategoryID string       `json:"categoryId,omitempty"`
		Name       string       `json:"name"`
		Icon       string       `json:"icon,omitempty"`
		Unset      bool         `json:"unset,omitempty"`
		Status     BudgetStatus `json:"status"`
	}

	BudgetOverview struct {
		Month       MonthKey     `json:"month"`
		BudgetSet   bool         `json:"budgetSet"`
		Overall     BudgetCard   `json:"overall"`
		Categories  []BudgetCard `json:"categories"`
		LastUpdated time.Time    `json:"lastUpdated,omitempty"`
	}

	// MonthReport is everything the monthly views need, built in one pass.
	MonthReport struct {
		UserID           string                     `json:"userId"`
		Month            MonthKey                   `json:"month"`
		PieSlices        []PieSlice                 `json:"pieSlices"`
		DailySeries      []DailyPoint               `json:"dailySeries"`
		TotalExpense     decimal.Decimal            `json:"totalExpense"`
		AveragePerDay    decimal.Decimal            `json:"averagePerDay"`
		ByCategoryTotals map[string]decimal.Decimal `json:"byCategoryTotals"`
		Income           decimal.Decimal            `json:"income"`
		Balance          decimal.Decimal            `json:"balance"`
		ByDay            []DayGroup                 `json:"byDay"`
		Budget           BudgetOverview             `json:"budget"`
		Transactions     int                        `json:"transactionCount"`
		Dropped          int                        `json:"droppedCount"`
		GeneratedAt      time.Time                  `json:"generatedAt"`
	}
)
