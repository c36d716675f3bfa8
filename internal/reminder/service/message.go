package service

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/smallbiznis/netbill/internal/invoice/domain"
	"github.com/smallbiznis/netbill/internal/invoice/format"
)

const defaultTemplate = `Halo {{.CustomerName}}, tagihan internet {{.InvoiceNumber}} sebesar {{.Amount}} ` +
	`jatuh tempo {{.DueDate}}{{if gt .DaysLeft 0}} ({{.DaysLeft}} hari lagi){{else if eq .DaysLeft 0}} (hari ini){{end}}. ` +
	`Abaikan pesan ini jika sudah membayar. Terima kasih.`

type messageData struct {
	InvoiceNumber string
	CustomerName  string
	Amount        string
	DueDate       string
	DaysLeft      int
}

func parseTemplate(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("reminder").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse reminder template: %w", err)
	}
	return tmpl, nil
}

func renderMessage(tmpl *template.Template, inv domain.Invoice, offset int) (string, error) {
	name := strings.TrimSpace(inv.CustomerName)
	if name == "" {
		name = "Pelanggan"
	}
	var b strings.Builder
	err := tmpl.Execute(&b, messageData{
		InvoiceNumber: inv.Number,
		CustomerName:  name,
		Amount:        format.FormatIDR(inv.Amount),
		DueDate:       format.FormatDate(inv.DueDate),
		DaysLeft:      -offset,
	})
	if err != nil {
		return "", fmt.Errorf("render reminder: %w", err)
	}
	return b.String(), nil
}
