package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	InvoiceOpen   InvoiceStatus = "open"
	InvoiceClosed InvoiceStatus = "closed"
	InvoicePaid   InvoiceStatus = "paid"
)

type (
	TransactionKind string

	InvoiceStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Card is a credit card with the two day-of-month anchors that define
	// its billing cycle.
	Card struct {
		ID          int64
		Name        string
		ClosingDay  int // 1-31, clamped to the month's length
		DueDay      int // 1-31, clamped to the month's length
		CreditLimit Money
	}

	Category struct {
		ID           int64
		Name         string
		Kind         TransactionKind
		MonthlyLimit Money // zero means no configured limit
	}

	// Transaction is a one-off income or expense record.
	Transaction struct {
		ID          int64
		Kind        TransactionKind
		Amount      Money
		Date        Date
		CategoryID  int64
		Description string
	}

	// InstallmentPurchase is a card purchase split over N monthly
	// installments. CurrentInstallment is the 1-based next unpaid
	// installment; InstallmentCount+1 means fully settled.
	InstallmentPurchase struct {
		ID                 int64
		CardID             int64
		Description        string
		TotalAmount        Money
		InstallmentCount   int
		InstallmentAmount  Money
		PurchaseDate       Date
		CurrentInstallment int
		CategoryID         int64
		IsRecurring        bool
	}

	// RecurringObligation is a fixed monthly expense anchored to a due day.
	RecurringObligation struct {
		ID                int64
		Description       string
		Amount            Money
		DueDay            int // 1-31, clamped to the month's length
		CategoryID        int64
		Active            bool
		PaidCurrentPeriod bool
	}

	// CardInvoice is one billing cycle of a card. PeriodKey is unique per
	// (card, cycle); TotalAmount only grows while the invoice is open.
	CardInvoice struct {
		ID          int64
		CardID      int64
		PeriodKey   string
		ClosingDate Date
		DueDate     Date
		Status      InvoiceStatus
		TotalAmount Money
	}
)

var (
	ErrInvalidDay              = errors.New("invalid day")
	ErrInvalidMonth            = errors.New("invalid month")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidDueDay           = errors.New("due day outside 1-31")
	ErrInvalidClosingDay       = errors.New("closing day outside 1-31")
	ErrInvalidInstallmentCount = errors.New("installment count must be at least 1")
	ErrInvalidInstallment      = errors.New("current installment out of range")
	ErrInvalidStatus           = errors.New("invalid invoice status")
	ErrInvalidTransition       = errors.New("invalid invoice status transition")
	ErrInvalidKind             = errors.New("invalid transaction kind")
	ErrEmptyName               = errors.New("empty name")
	ErrEmptyPeriodKey          = errors.New("empty period key")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int in [1,12]
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k TransactionKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (s InvoiceStatus) Validate() error {
	switch s {
	case InvoiceOpen, InvoiceClosed, InvoicePaid:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidClosingDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if c.CreditLimit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	if c.MonthlyLimit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (p InstallmentPurchase) Validate() error {
	if err := p.TotalAmount.Validate(); err != nil {
		return err
	}
	if p.InstallmentCount < 1 {
		return ErrInvalidInstallmentCount
	}
	if p.CurrentInstallment < 1 || p.CurrentInstallment > p.InstallmentCount+1 {
		return ErrInvalidInstallment
	}
	if err := p.PurchaseDate.Validate(); err != nil {
		return errors.New("invalid purchase date: " + err.Error())
	}
	if len(p.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Settled reports whether every installment of the purchase has been paid.
func (p InstallmentPurchase) Settled() bool {
	return p.CurrentInstallment > p.InstallmentCount
}

func (o RecurringObligation) Validate() error {
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if o.DueDay < 1 || o.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if len(o.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (i CardInvoice) Validate() error {
	if err := i.Status.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.PeriodKey) == "" {
		return ErrEmptyPeriodKey
	}
	if i.TotalAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if err := i.ClosingDate.Validate(); err != nil {
		return errors.New("invalid closing date: " + err.Error())
	}
	if err := i.DueDate.Validate(); err != nil {
		return errors.New("invalid due date: " + err.Error())
	}
	return nil
}
