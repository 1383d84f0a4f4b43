package importer

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"sobres/internal/core"
)

// BancoChile parses the bank's HTML notification emails. The subject line
// decides which layout to expect; unrecognized subjects yield no movements
// rather than an error, since the mailbox also receives marketing.
type BancoChile struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewBancoChile(logger *slog.Logger) *BancoChile {
	return &BancoChile{
		logger: logger.With("component", "bancochile_parser"),
		now:    time.Now,
	}
}

var (
	replyPrefixRe = regexp.MustCompile(`(?i)^([\[\(] *)?(RE?|FWD?) *([-:)] *)?`)

	incomingSenderRe = regexp.MustCompile(`cliente\s+(.+?)\s+ha efectuado`)
	purchasePayeeRe  = regexp.MustCompile(`\s+en\s+(.+?)\s+el\s+\d{2}/\d{2}/\d{4}`)
	purchaseAmountRe = regexp.MustCompile(`\$\s*([\d\.]+)`)
	purchaseDateRe   = regexp.MustCompile(`el\s+(\d{2}/\d{2}/\d{4})`)
	cardHintRe       = regexp.MustCompile(`\*{4}\s*(\d{4})`)
	amountLabelRe    = regexp.MustCompile(`Monto( Pagado)?`)

	// "miércoles 03 de diciembre de 2025" in the email footer
	spanishDateRe = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+([a-záéíóúñ]+)(?:\s+de\s+(\d{4}))?`)
)

var spanishMonths = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
}

// Parse dispatches on the cleaned subject and returns zero or one movements.
func (b *BancoChile) Parse(subject, htmlBody string) ([]core.TransactionDTO, error) {
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}
	mail := newMailDoc(doc)

	cleanSubject := strings.TrimSpace(replyPrefixRe.ReplaceAllString(subject, ""))
	lower := strings.ToLower(cleanSubject)

	var dto *core.TransactionDTO
	switch {
	case strings.Contains(lower, "aviso de transferencia de fondos"):
		dto = b.parseIncomingTransfer(mail)
	case strings.Contains(lower, "transferencia a terceros"):
		dto = b.parseOutgoingTransfer(mail)
	case strings.Contains(lower, "compra"), strings.Contains(lower, "cargo en cuenta"):
		dto = b.parsePurchase(mail, cleanSubject)
	case strings.Contains(lower, "pago tarjeta"), strings.Contains(lower, "línea de crédito"):
		dto = b.parsePayment(mail, cleanSubject)
	default:
		b.logger.Warn("unrecognized email format", "subject", cleanSubject)
		return nil, nil
	}

	if dto == nil {
		return nil, nil
	}
	return []core.TransactionDTO{*dto}, nil
}

func (b *BancoChile) parseIncomingTransfer(mail *mailDoc) *core.TransactionDTO {
	amountText := mail.cellAfterLabel("Monto")
	if amountText == "" {
		b.logger.Warn("incoming transfer without amount cell")
		return nil
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		b.logger.Warn("unparseable amount", "text", amountText, "error", err)
		return nil
	}

	payee := "Transferencia Recibida"
	if m := incomingSenderRe.FindStringSubmatch(mail.text); m != nil {
		payee = strings.TrimSpace(m[1])
	}

	date := b.now().UTC()
	if dateText := mail.cellAfterLabel("Fecha"); dateText != "" {
		if d, err := time.Parse("02/01/2006", dateText); err == nil {
			date = d
		}
	}

	return b.dto(date, payee, amount, "Transferencia Recibida", mail)
}

func (b *BancoChile) parseOutgoingTransfer(mail *mailDoc) *core.TransactionDTO {
	amountText := mail.cellAfterLabel("Monto")
	if amountText == "" {
		b.logger.Warn("outgoing transfer without amount cell")
		return nil
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		b.logger.Warn("unparseable amount", "text", amountText, "error", err)
		return nil
	}

	payee := "Transferencia Saliente"
	if name := mail.cellAfterLabel("Nombre y Apellido"); name != "" {
		payee = name
	}

	return b.dto(b.footerDate(mail), payee, -amount, "Transferencia Enviada", mail)
}

func (b *BancoChile) parsePurchase(mail *mailDoc, subject string) *core.TransactionDTO {
	idx := strings.Index(mail.text, "Te informamos que")
	if idx < 0 {
		b.logger.Warn("purchase email without narrative paragraph")
		return nil
	}
	narrative := mail.text[idx:]

	payee := subject
	if m := purchasePayeeRe.FindStringSubmatch(narrative); m != nil {
		payee = strings.TrimSuffix(strings.TrimSpace(m[1]), ".")
	}

	var amount core.Money
	if m := purchaseAmountRe.FindStringSubmatch(narrative); m != nil {
		parsed, err := core.ParseAmount(m[1])
		if err != nil {
			b.logger.Warn("unparseable amount", "text", m[1], "error", err)
			return nil
		}
		amount = parsed
	}

	date := b.now().UTC()
	if m := purchaseDateRe.FindStringSubmatch(narrative); m != nil {
		if d, err := time.Parse("02/01/2006", m[1]); err == nil {
			date = d
		}
	}

	return b.dto(date, payee, -amount, subject, mail)
}

func (b *BancoChile) parsePayment(mail *mailDoc, subject string) *core.TransactionDTO {
	amountText := mail.cellAfterLabelRe(amountLabelRe)
	if amountText == "" {
		b.logger.Warn("payment email without amount cell")
		return nil
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		b.logger.Warn("unparseable amount", "text", amountText, "error", err)
		return nil
	}

	var date time.Time
	// "Fecha" is the simple table cell; "Fecha y Hora" is the footer and is
	// handled by footerDate below.
	if dateText := mail.cellAfterLabelExcluding("Fecha", "Fecha y Hora"); dateText != "" {
		if d, err := time.Parse("02/01/2006", dateText); err == nil {
			date = d
		}
	}
	if date.IsZero() {
		date = b.footerDate(mail)
	}

	return b.dto(date, "Pago Tarjeta/Línea Crédito", -amount, subject, mail)
}

// footerDate reads the long-form Spanish date after the "Fecha y Hora"
// footer label, falling back to today so one missing footer never blocks an
// import.
func (b *BancoChile) footerDate(mail *mailDoc) time.Time {
	after := mail.textAfter("Fecha y Hora")
	if m := spanishDateRe.FindStringSubmatch(after); m != nil {
		if month, ok := spanishMonths[strings.ToLower(m[2])]; ok {
			day := atoiSafe(m[1])
			year := b.now().Year()
			if m[3] != "" {
				year = atoiSafe(m[3])
			}
			if day >= 1 && day <= 31 {
				return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			}
		}
	}
	return b.now().UTC()
}

func (b *BancoChile) dto(date time.Time, payee string, amount core.Money, memo string, mail *mailDoc) *core.TransactionDTO {
	day := core.Day(date)
	dto := core.TransactionDTO{
		Date:     day,
		Payee:    payee,
		Amount:   amount,
		Memo:     memo,
		ImportID: DedupID(day, payee, amount),
	}
	if m := cardHintRe.FindStringSubmatch(mail.text); m != nil {
		dto.AccountIdentifier = m[1]
	}
	return &dto
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// mailDoc is a flattened view of the email HTML: the table cells in
// document order plus the whitespace-normalized full text.
type mailDoc struct {
	cells []string
	text  string
}

func newMailDoc(doc *html.Node) *mailDoc {
	m := &mailDoc{}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			m.cells = append(m.cells, normalizeSpace(nodeText(n)))
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	m.text = normalizeSpace(b.String())
	return m
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cellAfterLabel returns the cell following the first cell containing the
// label, the bank's key/value table layout.
func (m *mailDoc) cellAfterLabel(label string) string {
	return m.cellAfterLabelExcluding(label, "")
}

func (m *mailDoc) cellAfterLabelExcluding(label, exclude string) string {
	for i, cell := range m.cells {
		if !strings.Contains(cell, label) {
			continue
		}
		if exclude != "" && strings.Contains(cell, exclude) {
			continue
		}
		if i+1 < len(m.cells) {
			return m.cells[i+1]
		}
	}
	return ""
}

func (m *mailDoc) cellAfterLabelRe(label *regexp.Regexp) string {
	for i, cell := range m.cells {
		if label.MatchString(cell) && i+1 < len(m.cells) {
			return m.cells[i+1]
		}
	}
	return ""
}

// textAfter returns the normalized full text following the first occurrence
// of the marker.
func (m *mailDoc) textAfter(marker string) string {
	idx := strings.Index(m.text, marker)
	if idx < 0 {
		return ""
	}
	return m.text[idx+len(marker):]
}
