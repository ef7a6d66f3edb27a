package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date without a time component. It travels as
// "2006-01-02" in JSON and as a Postgres date in the store.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	d.Time = t
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Format(time.DateOnly), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// Before reports whether d is strictly before other, comparing dates only.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

type Category string

const (
	CategoryStudent Category = "STUDENT"
	CategoryFaculty Category = "FACULTY"
	CategoryStaff   Category = "STAFF"
)

type Reader struct {
	ID        int      `json:"id" db:"id"`
	FullName  string   `json:"fullName" db:"full_name"`
	BirthDate Date     `json:"birthDate" db:"birth_date"`
	Phone     string   `json:"phone" db:"phone"`
	Category  Category `json:"category" db:"category"`
}

type Book struct {
	ID          int    `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Author      string `json:"author" db:"author"`
	Publisher   string `json:"publisher" db:"publisher"`
	Year        int    `json:"year" db:"year"`
	Keywords    string `json:"keywords" db:"keywords"`
	TotalCopies int    `json:"totalCopies" db:"total_copies"`
}

type Loan struct {
	ID         int   `json:"id" db:"id"`
	ReaderID   int   `json:"readerId" db:"reader_id"`
	BookID     int   `json:"bookId" db:"book_id"`
	LoanDate   Date  `json:"loanDate" db:"loan_date"`
	DueDate    Date  `json:"dueDate" db:"due_date"`
	ReturnDate *Date `json:"returnDate" db:"return_date"`
}

// LoanDetail is a loan joined with the reader and book it references,
// the shape the loan grid and the overdue report use.
type LoanDetail struct {
	ID         int    `json:"id" db:"id"`
	ReaderName string `json:"readerName" db:"reader_name"`
	BookTitle  string `json:"bookTitle" db:"book_title"`
	LoanDate   Date   `json:"loanDate" db:"loan_date"`
	DueDate    Date   `json:"dueDate" db:"due_date"`
	ReturnDate *Date  `json:"returnDate" db:"return_date"`
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusIssued  OrderStatus = "ISSUED"
)

type Order struct {
	ID               int         `json:"id" db:"id"`
	ReaderID         int         `json:"readerId" db:"reader_id"`
	BookID           int         `json:"bookId" db:"book_id"`
	OrderDate        Date        `json:"orderDate" db:"order_date"`
	Status           OrderStatus `json:"status" db:"status"`
	ConfirmationCode string      `json:"confirmationCode" db:"confirmation_code"`
}

type OrderDetail struct {
	ID               int         `json:"id" db:"id"`
	ReaderName       string      `json:"readerName" db:"reader_name"`
	BookTitle        string      `json:"bookTitle" db:"book_title"`
	OrderDate        Date        `json:"orderDate" db:"order_date"`
	Status           OrderStatus `json:"status" db:"status"`
	ConfirmationCode string      `json:"confirmationCode" db:"confirmation_code"`
}

type PopularBook struct {
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	LoanCount int    `json:"loanCount" db:"loan_count"`
}

type CreateReaderRequest struct {
	FullName  string   `json:"fullName" validate:"required"`
	BirthDate Date     `json:"birthDate" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	Category  Category `json:"category" validate:"required,oneof=STUDENT FACULTY STAFF"`
}

type CreateBookRequest struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Publisher   string `json:"publisher"`
	Year        int    `json:"year" validate:"gte=0"`
	Keywords    string `json:"keywords"`
	TotalCopies int    `json:"totalCopies" validate:"required,gte=1"`
}

type SearchBooksRequest struct {
	Title    string
	Author   string
	Keywords string
}

type CreateLoanRequest struct {
	ReaderID int  `json:"readerId" validate:"required,gt=0"`
	BookID   int  `json:"bookId" validate:"required,gt=0"`
	LoanDate Date `json:"loanDate" validate:"required"`
	DueDate  Date `json:"dueDate" validate:"required"`
}

type ReturnLoanRequest struct {
	ReturnDate Date `json:"returnDate" validate:"required"`
}

type CreateOrderRequest struct {
	ReaderID  int  `json:"readerId" validate:"required,gt=0"`
	BookID    int  `json:"bookId" validate:"required,gt=0"`
	OrderDate Date `json:"orderDate" validate:"required"`
}

type CreateOrderResponse struct {
	OrderID          int    `json:"orderId"`
	ConfirmationCode string `json:"confirmationCode"`
}

type IssueOrderRequest struct {
	LoanDate Date `json:"loanDate" validate:"required"`
	DueDate  Date `json:"dueDate" validate:"required"`
}

type AvailabilityResponse struct {
	BookID    int `json:"bookId"`
	Available int `json:"available"`
}

// ReportSummary bundles both read-side reports.
type ReportSummary struct {
	Overdue []LoanDetail  `json:"overdue"`
	Popular []PopularBook `json:"popular"`
}
