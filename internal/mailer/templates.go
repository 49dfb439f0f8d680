/**
 * @description
 * Reminder email templates. Each reminder offset has its own closed variant
 * (ReminderKind) mapped to a subject line and an HTML body, so template
 * selection is a type switch instead of a string lookup.
 */
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ReminderKind identifies which of the fixed renewal reminders is being sent.
type ReminderKind int

const (
	ReminderUnknown ReminderKind = iota
	Reminder7Days
	Reminder5Days
	Reminder2Days
	Reminder1Day
)

// KindForOffset maps a days-before-renewal offset to its reminder kind.
func KindForOffset(daysBefore int) ReminderKind {
	switch daysBefore {
	case 7:
		return Reminder7Days
	case 5:
		return Reminder5Days
	case 2:
		return Reminder2Days
	case 1:
		return Reminder1Day
	}
	return ReminderUnknown
}

// DaysBefore returns the offset the kind represents.
func (k ReminderKind) DaysBefore() int {
	switch k {
	case Reminder7Days:
		return 7
	case Reminder5Days:
		return 5
	case Reminder2Days:
		return 2
	case Reminder1Day:
		return 1
	}
	return 0
}

// Label returns the human-readable label used in logs and run history.
func (k ReminderKind) Label() string {
	if k == ReminderUnknown {
		return "unknown reminder"
	}
	if k == Reminder1Day {
		return "1 day before reminder"
	}
	return fmt.Sprintf("%d days before reminder", k.DaysBefore())
}

// Valid reports whether k is one of the four fixed reminder kinds.
func (k ReminderKind) Valid() bool {
	return k.DaysBefore() != 0
}

// TemplateData carries the fields the templates render.
type TemplateData struct {
	UserName      string
	PlanName      string
	RenewalDate   string // human readable, e.g. "Jan 5, 2025"
	Price         string // e.g. "USD 13.99 (monthly)"
	PaymentMethod string
	DaysLeft      int
}

var bodyTemplate = template.Must(template.New("reminder").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hello {{.UserName}},</h2>
    <p>{{.Headline}}</p>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
        <tr>
            <td style="padding: 8px; border-bottom: 1px solid #eee;"><strong>Plan</strong></td>
            <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Data.PlanName}}</td>
        </tr>
        <tr>
            <td style="padding: 8px; border-bottom: 1px solid #eee;"><strong>Renewal date</strong></td>
            <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Data.RenewalDate}}</td>
        </tr>
        <tr>
            <td style="padding: 8px; border-bottom: 1px solid #eee;"><strong>Price</strong></td>
            <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Data.Price}}</td>
        </tr>
        <tr>
            <td style="padding: 8px; border-bottom: 1px solid #eee;"><strong>Payment method</strong></td>
            <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Data.PaymentMethod}}</td>
        </tr>
    </table>
    <p>If you would like to make changes or cancel, please do so before the renewal date.</p>
    <p>Thanks for using SubTrack!</p>
</div>
`))

// Subject renders the subject line for this reminder kind.
func (k ReminderKind) Subject(data TemplateData) string {
	switch k {
	case Reminder7Days:
		return fmt.Sprintf("📅 Reminder: Your %s subscription renews in 7 days", data.PlanName)
	case Reminder5Days:
		return fmt.Sprintf("⏳ 5 days left — %s renews on %s", data.PlanName, data.RenewalDate)
	case Reminder2Days:
		return fmt.Sprintf("🚀 2 days left! Your %s subscription renews soon", data.PlanName)
	case Reminder1Day:
		return fmt.Sprintf("⚡ Final reminder: %s renews tomorrow", data.PlanName)
	}
	return ""
}

// Body renders the HTML body for this reminder kind.
func (k ReminderKind) Body(data TemplateData) (string, error) {
	var headline string
	switch k {
	case Reminder7Days:
		headline = fmt.Sprintf("Your %s subscription renews on %s — that's 7 days from now.", data.PlanName, data.RenewalDate)
	case Reminder5Days:
		headline = fmt.Sprintf("Only 5 days left until your %s subscription renews on %s.", data.PlanName, data.RenewalDate)
	case Reminder2Days:
		headline = fmt.Sprintf("Your %s subscription renews in 2 days, on %s.", data.PlanName, data.RenewalDate)
	case Reminder1Day:
		headline = fmt.Sprintf("Your %s subscription renews tomorrow, %s.", data.PlanName, data.RenewalDate)
	default:
		return "", ErrUnknownReminder
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		UserName string
		Headline string
		Data     TemplateData
	}{
		UserName: data.UserName,
		Headline: headline,
		Data:     data,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
