// Package mailer sends the transactional emails: order confirmation to the
// customer, per-formation notifications to the responsible association, and
// delivery notices. Sends are fire-and-forget; no delivery confirmation is
// consumed anywhere.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"tulipes/internal/models"
)

// formationContacts routes admin notifications to the association in charge
// of each formation.
var formationContacts = map[string]string{
	"BUT Informatique":                            "bdeinfo@inter-asso.fr",
	"BUT MMI":                                     "bdemmi@inter-asso.fr",
	"BUT R&T":                                     "bdert@inter-asso.fr",
	"BUT Info-Com (Journalisme)":                  "bdemmi@inter-asso.fr",
	"BUT Info-Com (Parcours des Organisations)":   "bdemmi@inter-asso.fr",
	"BUT Mesures Physiques":                       "bdemp@inter-asso.fr",
	"Personnel de l'IUT":                          "bdemmi@inter-asso.fr",
}

const defaultContact = "bdemmi@inter-asso.fr"

// ContactForFormation returns the notification address for a formation,
// falling back to the default association inbox.
func ContactForFormation(formation string) string {
	if email, ok := formationContacts[formation]; ok {
		return email
	}
	return defaultContact
}

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages; the production implementation is Resend.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders and sends every email the shop produces.
type Mailer struct {
	sender Sender
	from   string
}

func New(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

var itemsTmpl = template.Must(template.New("items").Parse(`{{range .}}
<div style="border-left: 4px solid #ec4899; padding-left: 12px; margin-bottom: 24px;">
  <p style="margin: 0 0 4px 0;"><strong>{{.FlowerType}}</strong> (Pour: {{.Recipient}} - {{.Formation}})</p>
  <p style="margin: 0 0 4px 0; font-size: 0.9em; color: #555;">De: {{.SenderDisplayName}}</p>
  <p style="margin: 0; font-style: italic; background: #f9f9f9; padding: 8px; border-radius: 4px;">"{{.Message}}"</p>
</div>
{{end}}`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<h1>Merci pour ta commande !</h1>
<p>Ta commande de <strong>{{.Count}} tulipe(s)</strong> a bien été enregistrée pour un total de <strong>{{.Total}}€</strong>.</p>
<div class="details-box">
  <h3>Récapitulatif :</h3>
  {{.Items}}
</div>
<p>Ta ou tes tulipe(s) seront livrées dans la dernière semaine avant les vacances !</p>
<p>On t'envoie un email de confirmation dès que chaque tulipe sera livrée.</p>
`))

var adminTmpl = template.Must(template.New("admin").Parse(`
<h1>Nouvelle commande !</h1>
<p><strong>{{.Count}}</strong> tulipe(s) commandée(s) pour <strong>{{.Formation}}</strong>.</p>
<div class="details-box">
  {{.Items}}
  <div style="margin-top: 16px; font-size: 0.8em; color: #777;">
    <p>Stock mis à jour : {{.Stock}}</p>
  </div>
</div>
`))

var deliveryTmpl = template.Must(template.New("delivery").Parse(`
<h1>Bonne nouvelle ! 🌷</h1>
<p>Ta commande pour <strong>{{.Recipient}}</strong>{{if .Formation}} ({{.Formation}}){{end}} a bien été livrée !</p>
<br/>
<p>Merci pour ta participation,</p>
<p>L'équipe Inter-Asso</p>
`))

func renderItems(orders []models.Order) (template.HTML, error) {
	var buf bytes.Buffer
	if err := itemsTmpl.Execute(&buf, orders); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// SendOrderConfirmation emails the customer a recap of every item. total is
// the formatted order total in euros.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, to string, orders []models.Order, total string) error {
	items, err := renderItems(orders)
	if err != nil {
		return fmt.Errorf("render items: %w", err)
	}

	var buf bytes.Buffer
	err = confirmationTmpl.Execute(&buf, map[string]any{
		"Count": len(orders),
		"Total": total,
		"Items": items,
	})
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{to},
		Subject: "Confirmation de ta commande de Tulipe",
		HTML:    buf.String(),
	})
}

// SendAdminNotifications groups items by formation and emails each
// formation's association, including the remaining-stock line.
func (m *Mailer) SendAdminNotifications(ctx context.Context, orders []models.Order, stockLine string) error {
	byFormation := make(map[string][]models.Order)
	for _, order := range orders {
		formation := order.Formation
		if formation == "" {
			formation = "Autre"
		}
		byFormation[formation] = append(byFormation[formation], order)
	}

	for formation, group := range byFormation {
		items, err := renderItems(group)
		if err != nil {
			return fmt.Errorf("render items: %w", err)
		}

		var buf bytes.Buffer
		err = adminTmpl.Execute(&buf, map[string]any{
			"Count":     len(group),
			"Formation": formation,
			"Items":     items,
			"Stock":     stockLine,
		})
		if err != nil {
			return fmt.Errorf("render admin email: %w", err)
		}

		msg := Message{
			From:    m.from,
			To:      []string{ContactForFormation(formation)},
			Subject: fmt.Sprintf("Nouvelle commande [%s]", formation),
			HTML:    buf.String(),
		}
		if err := m.sender.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// SendDeliveryNotice tells the buyer their flower was handed over.
func (m *Mailer) SendDeliveryNotice(ctx context.Context, to, recipientName, formation string) error {
	if recipientName == "" {
		recipientName = "le destinataire"
	}

	var buf bytes.Buffer
	err := deliveryTmpl.Execute(&buf, map[string]any{
		"Recipient": recipientName,
		"Formation": formation,
	})
	if err != nil {
		return fmt.Errorf("render delivery email: %w", err)
	}

	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{to},
		Subject: "Ta Tulipe a été livrée ! 🌷",
		HTML:    buf.String(),
	})
}
