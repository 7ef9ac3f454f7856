package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MetaData is a WooCommerce meta_data entry. Value may be any JSON type.
type MetaData struct {
	ID    int64       `json:"id,omitempty"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// ValueString renders Value the way it should appear in chat.
func (m MetaData) ValueString() string {
	switch v := m.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// Product is the subset of a WooCommerce product the bot uses.
type Product struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	SKU    string `json:"sku"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Price  string `json:"price"`
}

const ProductTypeVariable = "variable"

// IsVariable reports whether the product has variations.
func (p Product) IsVariable() bool {
	return p.Type == ProductTypeVariable
}

// Variation is a product variation.
type Variation struct {
	ID    int64  `json:"id"`
	SKU   string `json:"sku"`
	Price string `json:"price"`
}

// Billing holds the order billing contact.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name.
func (b Billing) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// Order is the subset of a WooCommerce order the bot uses.
type Order struct {
	ID                 int64      `json:"id"`
	Status             string     `json:"status"`
	Currency           string     `json:"currency"`
	Total              string     `json:"total"`
	CustomerID         int64      `json:"customer_id"`
	PaymentMethod      string     `json:"payment_method"`
	PaymentMethodTitle string     `json:"payment_method_title"`
	TransactionID      string     `json:"transaction_id"`
	Billing            Billing    `json:"billing"`
	MetaData           []MetaData `json:"meta_data"`
}

// CustomOrderNumberKey is the meta key written by the custom order numbers plugin.
const CustomOrderNumberKey = "_alg_wc_custom_order_number"

// Meta returns the first meta entry with the given key.
func (o Order) Meta(key string) (MetaData, bool) {
	return findMeta(o.MetaData, key)
}

// CustomOrderNumber returns the storefront order number, if set.
func (o Order) CustomOrderNumber() (string, bool) {
	m, ok := o.Meta(CustomOrderNumberKey)
	if !ok || m.Value == nil {
		return "", false
	}
	return m.ValueString(), true
}

// Customer is a WooCommerce customer.
type Customer struct {
	ID       int64      `json:"id"`
	Email    string     `json:"email"`
	MetaData []MetaData `json:"meta_data"`
}

const (
	MetaCustomerCode  = "customer_code"
	MetaCustomerClass = "customer_class"
)

// MetaString returns the string form of a meta value, or "" when absent.
func (c Customer) MetaString(key string) string {
	m, ok := findMeta(c.MetaData, key)
	if !ok {
		return ""
	}
	return m.ValueString()
}

// MailLogSummary is one row of the mail-log search endpoint.
type MailLogSummary struct {
	MailID    json.Number `json:"mail_id"`
	Subject   string      `json:"subject"`
	Receiver  string      `json:"receiver"`
	Timestamp string      `json:"timestamp"`
}

// MailLogSearch is the mail-log search response.
type MailLogSearch struct {
	Results []MailLogSummary `json:"results"`
}

// MailLog is a single stored email.
type MailLog struct {
	MailID  json.Number `json:"mail_id"`
	Subject string      `json:"subject"`
	To      string      `json:"to"`
	HTML    string      `json:"html"`
}

func findMeta(meta []MetaData, key string) (MetaData, bool) {
	for _, m := range meta {
		if m.Key == key {
			return m, true
		}
	}
	return MetaData{}, false
}
