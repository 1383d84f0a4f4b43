package importer

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testParser(t *testing.T) *BancoChile {
	t.Helper()
	p := NewBancoChile(slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time {
		return time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)
	}
	return p
}

const incomingTransferHTML = `<html><body>
<p>Estimado(a) cliente:</p>
<p>Le informamos que el cliente MARIA PEREZ SOTO ha efectuado una transferencia de fondos a su cuenta.</p>
<table>
<tr><td>Monto</td><td>$50.000</td></tr>
<tr><td>Fecha</td><td>12/08/2026</td></tr>
<tr><td>Comentario</td><td>almuerzo</td></tr>
</table>
</body></html>`

func TestBancoChile_IncomingTransfer(t *testing.T) {
	dtos, err := testParser(t).Parse("Aviso de Transferencia de Fondos", incomingTransferHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("got %d movements, want 1", len(dtos))
	}
	dto := dtos[0]
	if dto.Amount != 50000 {
		t.Errorf("amount = %d, want 50000", int64(dto.Amount))
	}
	if dto.Payee != "MARIA PEREZ SOTO" {
		t.Errorf("payee = %q", dto.Payee)
	}
	if want := time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC); !dto.Date.Equal(want) {
		t.Errorf("date = %v, want %v", dto.Date, want)
	}
	if dto.ImportID != DedupID(dto.Date, dto.Payee, dto.Amount) {
		t.Errorf("import id not derived from content: %q", dto.ImportID)
	}
}

func TestBancoChile_IncomingTransferWithoutSender(t *testing.T) {
	body := `<html><body>
<p>Ha recibido una transferencia de fondos.</p>
<table><tr><td>Monto</td><td>$25.000</td></tr></table>
</body></html>`
	dtos, err := testParser(t).Parse("Aviso de Transferencia de Fondos", body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("got %d movements, want 1", len(dtos))
	}
	if dtos[0].Payee != "Transferencia Recibida" {
		t.Errorf("payee = %q, want the fallback", dtos[0].Payee)
	}
	// No date cell: falls back to the parser clock.
	if want := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC); !dtos[0].Date.Equal(want) {
		t.Errorf("date = %v, want %v", dtos[0].Date, want)
	}
}

const outgoingTransferHTML = `<html><body>
<p>Comprobante de transferencia a terceros.</p>
<table>
<tr><td>Nombre y Apellido</td><td>JUAN SOTO ROJAS</td></tr>
<tr><td>Monto</td><td>$30.000</td></tr>
</table>
<p>Fecha y Hora: mi&eacute;rcoles 12 de agosto de 2026, 14:32 hrs.</p>
</body></html>`

func TestBancoChile_OutgoingTransfer(t *testing.T) {
	dtos, err := testParser(t).Parse("Comprobante Transferencia a Terceros", outgoingTransferHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("got %d movements, want 1", len(dtos))
	}
	dto := dtos[0]
	if dto.Amount != -30000 {
		t.Errorf("amount = %d, want -30000", int64(dto.Amount))
	}
	if dto.Payee != "JUAN SOTO ROJAS" {
		t.Errorf("payee = %q", dto.Payee)
	}
	if want := time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC); !dto.Date.Equal(want) {
		t.Errorf("footer date = %v, want %v", dto.Date, want)
	}
}

const purchaseHTML = `<html><body>
<p>Estimado(a) cliente:</p>
<p>Te informamos que se ha realizado una compra por $15.990 con Tarjeta de Cr&eacute;dito ****5678 en UBER EATS el 12/08/2026 a las 13:45 hrs.</p>
</body></html>`

func TestBancoChile_Purchase(t *testing.T) {
	dtos, err := testParser(t).Parse("Compra con Tarjeta de Crédito", purchaseHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("got %d movements, want 1", len(dtos))
	}
	dto := dtos[0]
	if dto.Amount != -15990 {
		t.Errorf("amount = %d, want -15990", int64(dto.Amount))
	}
	if dto.Payee != "UBER EATS" {
		t.Errorf("payee = %q, want UBER EATS", dto.Payee)
	}
	if want := time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC); !dto.Date.Equal(want) {
		t.Errorf("date = %v, want %v", dto.Date, want)
	}
	if dto.AccountIdentifier != "5678" {
		t.Errorf("account hint = %q, want 5678", dto.AccountIdentifier)
	}
}

func TestBancoChile_PurchaseReplySubject(t *testing.T) {
	// Forwarded and replied notifications keep their prefix in the subject.
	dtos, err := testParser(t).Parse("RE: Compra con Tarjeta de Crédito", purchaseHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("reply prefix broke dispatch: got %d movements", len(dtos))
	}
}

const paymentHTML = `<html><body>
<p>Comprobante de pago.</p>
<table>
<tr><td>Monto Pagado</td><td>$120.000</td></tr>
<tr><td>Fecha</td><td>05/08/2026</td></tr>
</table>
</body></html>`

func TestBancoChile_CardPayment(t *testing.T) {
	dtos, err := testParser(t).Parse("Comprobante de Pago Tarjeta de Crédito", paymentHTML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("got %d movements, want 1", len(dtos))
	}
	dto := dtos[0]
	if dto.Amount != -120000 {
		t.Errorf("amount = %d, want -120000", int64(dto.Amount))
	}
	if dto.Payee != "Pago Tarjeta/Línea Crédito" {
		t.Errorf("payee = %q", dto.Payee)
	}
	if want := time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC); !dto.Date.Equal(want) {
		t.Errorf("date = %v, want %v", dto.Date, want)
	}
}

func TestBancoChile_UnrecognizedSubject(t *testing.T) {
	dtos, err := testParser(t).Parse("Descubre los beneficios de tu tarjeta", "<html><body><p>Publicidad</p></body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dtos != nil {
		t.Errorf("marketing email produced %d movements", len(dtos))
	}
}

func TestBancoChile_MalformedTableYieldsNothing(t *testing.T) {
	dtos, err := testParser(t).Parse("Aviso de Transferencia de Fondos", "<html><body><p>Sin tabla</p></body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dtos != nil {
		t.Errorf("missing amount cell produced %d movements", len(dtos))
	}
}

func TestDedupID(t *testing.T) {
	d := time.Date(2026, time.August, 12, 0, 0, 0, 0, time.UTC)
	a := DedupID(d, "LIDER", -12500)
	b := DedupID(d, "LIDER", -12500)
	if a != b {
		t.Error("same movement produced different ids")
	}
	// The sign is dropped so the same movement seen from both sides of a
	// statement still collapses.
	if a != DedupID(d, "LIDER", 12500) {
		t.Error("sign changed the id")
	}
	if a == DedupID(d, "COPEC", -12500) {
		t.Error("different payees collided")
	}
	if a == DedupID(d.AddDate(0, 0, 1), "LIDER", -12500) {
		t.Error("different dates collided")
	}
}

func TestNormalizeSpaceAndCells(t *testing.T) {
	dtos, err := testParser(t).Parse("Aviso de Transferencia de Fondos", `<html><body>
<table><tr><td>  Monto   </td><td>
  $ 1.500
</td></tr></table></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dtos) != 1 || dtos[0].Amount != 1500 {
		t.Errorf("whitespace-heavy cells parsed as %+v", dtos)
	}
}
