package utils

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func IsValidUuid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

/* decimal helpers */

// Storage scale for amounts and rates (decimal(18,6)); money display scale is 2.
const (
	AmountScale = 6
	MoneyScale  = 2
)

// RoundAmount rounds half-even to the storage scale.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(AmountScale)
}

// RoundMoney rounds half-even to the display/money scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyScale)
}

// SafeRatePercent returns numerator / denominator * 100 at the storage scale,
// or exactly zero when the denominator is not positive.
func SafeRatePercent(numerator, denominator decimal.Decimal) decimal.Decimal {
	if !denominator.IsPositive() {
		return decimal.Zero
	}
	return RoundAmount(numerator.Div(denominator).Mul(decimal.NewFromInt(100)))
}

// SafeDiv returns numerator / denominator, or zero when the denominator is not positive.
func SafeDiv(numerator, denominator decimal.Decimal) decimal.Decimal {
	if !denominator.IsPositive() {
		return decimal.Zero
	}
	return numerator.Div(denominator)
}

func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

/* generic helpers */

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool, len(slice))
	unique := make([]T, 0, len(slice))
	for _, v := range slice {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	return unique
}

// mergeSlices merges two string slices and removes duplicates
func MergeStringSlices(slice1, slice2 []string) []string {
	return UniqueSlice(append(append([]string{}, slice1...), slice2...))
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// return nil if boolean expression is true, else the given default
func NilOrElse[T any](b bool, elseValue T) *T {
	if b {
		return nil
	}
	return &elseValue
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

// turn fulfillmentOrder to FulfillmentOrder
func UppercaseFirst(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// turn ToggleActive to toggleActive
func LowercaseFirst(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func ExecTemplate(tString string, data map[string]interface{}) (string, error) {
	t, err := template.New("sql").Parse(tString)
	if err != nil {
		return "", errors.New("error parsing sql template: " + err.Error())
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", errors.New("failed to execute sql template: " + err.Error())
	}
	return b.String(), nil
}

// GenerateFileKey builds the canonical object key for an uploaded file:
// files/{tenant}/[{folder}/]{uuid}.{ext}
func GenerateFileKey(tenantName string, folderPath string, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	name := uuid.NewString()
	if ext != "" {
		name = name + "." + ext
	}
	if folderPath = strings.Trim(folderPath, "/"); folderPath != "" {
		return fmt.Sprintf("files/%s/%s/%s", tenantName, folderPath, name)
	}
	return fmt.Sprintf("files/%s/%s", tenantName, name)
}

func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location), nil
}
