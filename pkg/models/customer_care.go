package models

type CustomerCare struct {
	ID               string         `json:"id,omitempty"`
	UserID           string         `json:"user_id"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	Email            string         `json:"email"`
	Password         string         `json:"password,omitempty"`
	Phone            string         `json:"phone"`
	ContactEmail     []ContactEmail `json:"contact_email"`
	ContactPhone     []ContactPhone `json:"contact_phone"`
	AssignedTickets  []string       `json:"assigned_tickets"`
	CreatedAt        int64          `json:"created_at"`
	UpdatedAt        int64          `json:"updated_at"`
	LastLogin        int64          `json:"last_login"`
	Avatar           *Avatar        `json:"avatar,omitempty"`
	AvailableForWork bool           `json:"available_for_work"`
	IsAssigned       bool           `json:"is_assigned"`
}

type InquiryIssueType string

var InquiryIssueTypes = []InquiryIssueType{
	"ACCOUNT", "PAYMENT", "PRODUCT", "DELIVERY", "REFUND", "TECHNICAL", "OTHER",
}

type InquiryStatus string

var InquiryStatuses = []InquiryStatus{"OPEN", "IN_PROGRESS", "RESOLVED", "CLOSED", "ESCALATE"}

type InquiryPriority string

var InquiryPriorities = []InquiryPriority{"LOW", "MEDIUM", "HIGH", "URGENT"}

type InquiryResolutionType string

var InquiryResolutionTypes = []InquiryResolutionType{
	"REFUND", "REPLACEMENT", "INVESTIGATING", "ACCOUNT_FIX", "TECHNICAL_SUPPORT", "OTHER",
}

type Inquiry struct {
	ID              string                `json:"id,omitempty"`
	CustomerID      string                `json:"customer_id"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	IssueType       InquiryIssueType      `json:"issue_type"`
	Status          InquiryStatus         `json:"status"`
	OrderID         string                `json:"order_id,omitempty"`
	AssignedTo      string                `json:"assigned_to,omitempty"`
	AssigneeType    string                `json:"assignee_type"`
	Priority        InquiryPriority       `json:"priority"`
	ResolutionType  InquiryResolutionType `json:"resolution_type,omitempty"`
	ResolutionNotes string                `json:"resolution_notes,omitempty"`
}
