package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/wolfman30/frontdesk-ai/internal/appointments"
	"github.com/wolfman30/frontdesk-ai/internal/clinic"
)

type emailView struct {
	Clinic       *clinic.Profile
	PatientName  string
	Appointment  appointments.Appointment
	PreviousDate string
	PreviousTime string
	Heading      string
	Intro        string
}

var htmlLayout = template.Must(template.New("email").Parse(`<html><body style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px;">
<div style="background: #2c7be5; padding: 20px; border-radius: 12px 12px 0 0; color: white; text-align: center;">
  <h2>{{.Clinic.Name}}</h2>
  <p style="margin:0">{{.Heading}}</p>
</div>
<div style="padding: 24px; background: #f9f9f9; border-radius: 0 0 12px 12px;">
  <p>Hi <strong>{{.PatientName}}</strong>,</p>
  <p>{{.Intro}}</p>
  <div style="background: white; padding: 16px; border-radius: 10px; border-left: 4px solid #2c7be5; margin: 16px 0;">
    {{- if .PreviousDate}}
    <p><strong>Previously:</strong> {{.PreviousDate}} at {{.PreviousTime}}</p>
    {{- end}}
    <p><strong>Date:</strong> {{.Appointment.Date}}</p>
    <p><strong>Time:</strong> {{.Appointment.Time}}</p>
    <p><strong>Doctor:</strong> {{.Clinic.DoctorName}}</p>
    <p><strong>Location:</strong> {{.Clinic.Address}}</p>
    <p><strong>Phone:</strong> {{.Clinic.Phone}}</p>
    {{- if .Appointment.Concern}}
    <p><strong>Concern:</strong> {{.Appointment.Concern}}</p>
    {{- end}}
  </div>
  <p style="color: #555; font-size: 13px;">Please arrive 10 minutes before your appointment.<br>
  To reschedule or cancel, call us at {{.Clinic.Phone}}.</p>
  <hr style="border: none; border-top: 1px solid #eee;">
  <p style="color: #999; font-size: 12px; text-align: center;">This is an automated message from the {{.Clinic.Name}} front desk.</p>
</div>
</body></html>`))

func renderHTML(v emailView) (string, error) {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("notify: render email: %w", err)
	}
	return buf.String(), nil
}

func renderText(v emailView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s\n\n", v.PatientName, v.Intro)
	if v.PreviousDate != "" {
		fmt.Fprintf(&b, "Previously : %s at %s\n", v.PreviousDate, v.PreviousTime)
	}
	fmt.Fprintf(&b, "Date       : %s\n", v.Appointment.Date)
	fmt.Fprintf(&b, "Time       : %s\n", v.Appointment.Time)
	fmt.Fprintf(&b, "Doctor     : %s\n", v.Clinic.DoctorName)
	fmt.Fprintf(&b, "Location   : %s\n", v.Clinic.Address)
	fmt.Fprintf(&b, "Phone      : %s\n", v.Clinic.Phone)
	if v.Appointment.Concern != "" {
		fmt.Fprintf(&b, "Concern    : %s\n", v.Appointment.Concern)
	}
	fmt.Fprintf(&b, "\nPlease arrive 10 minutes early.\nTo reschedule or cancel, call us at %s.\n\n- %s front desk\n",
		v.Clinic.Phone, v.Clinic.Name)
	return b.String()
}
