package generator

import (
	"github.com/jogardn/flashfood-datagen/pkg/models"
)

const (
	InquiryOrderChance      = 0.7
	InquiryAssignedChance   = 0.5
	InquiryResolutionChance = 0.5
	InquiryNotesChance      = 0.3
)

var inquirySubjects = []string{
	"Issue with my order",
	"Payment problem",
	"Wrong delivery",
	"Missing items",
	"Account access issue",
	"Refund request",
	"App not working",
	"Restaurant complaint",
}

var assigneeTypes = []string{"ADMIN", "CUSTOMER_CARE"}

// CustomerCare fabricates a care representative profile for user, or for a
// stand-in when user is nil.
func (g *Generator) CustomerCare(user *models.User) models.CustomerCare {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	u := g.standIn(f)
	if user != nil {
		u = *user
	}
	email := orDefault(u.Email, f.Email())
	phone := orDefault(u.Phone, f.Phone())

	now := g.unix()
	return models.CustomerCare{
		UserID:    u.ID,
		FirstName: orDefault(u.FirstName, f.FirstName()),
		LastName:  orDefault(u.LastName, f.LastName()),
		Email:     email,
		Password:  f.Password(true, true, true, false, false, 12),
		Phone:     phone,
		ContactEmail: []models.ContactEmail{
			{Title: "Work", IsDefault: true, Email: email},
		},
		ContactPhone: []models.ContactPhone{
			{Title: "Work", Number: phone, IsDefault: true},
		},
		AssignedTickets:  []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
		LastLogin:        now - int64(f.Number(0, 86400)),
		Avatar:           g.avatar(f, AvatarChance),
		AvailableForWork: roll(f) > 0.2,
		IsAssigned:       false,
	}
}

// Inquiry fabricates a support ticket raised by customer. Most tickets
// reference one of orders; half of them are assigned to one of staff.
func (g *Generator) Inquiry(customer models.Customer, orders []models.Order, staff []models.CustomerCare) models.Inquiry {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.faker

	inq := models.Inquiry{
		CustomerID:   customer.ID,
		Subject:      f.RandomString(inquirySubjects),
		Description:  f.Paragraph(1, 3, 12, " "),
		IssueType:    models.InquiryIssueTypes[f.Number(0, len(models.InquiryIssueTypes)-1)],
		Status:       models.InquiryStatuses[f.Number(0, len(models.InquiryStatuses)-1)],
		AssigneeType: f.RandomString(assigneeTypes),
		Priority:     models.InquiryPriorities[f.Number(0, len(models.InquiryPriorities)-1)],
	}
	if len(orders) > 0 && roll(f) < InquiryOrderChance {
		inq.OrderID = orders[f.Number(0, len(orders)-1)].ID
	}
	if len(staff) > 0 && roll(f) < InquiryAssignedChance {
		inq.AssignedTo = staff[f.Number(0, len(staff)-1)].ID
	}
	if roll(f) < InquiryResolutionChance {
		inq.ResolutionType = models.InquiryResolutionTypes[f.Number(0, len(models.InquiryResolutionTypes)-1)]
	}
	if roll(f) < InquiryNotesChance {
		inq.ResolutionNotes = f.Sentence(12)
	}
	return inq
}
