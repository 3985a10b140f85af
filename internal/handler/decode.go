package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/money"
)

const maxBodyBytes = 64 << 10

// decodeObject reads the request body as a JSON object, calling fn for each
// key. An empty body is treated as {} when optional is set.
func decodeObject(w http.ResponseWriter, r *http.Request, optional bool, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("", errors.Wrap(err, "read body"))
	}
	if len(body) == 0 {
		if optional {
			return nil
		}
		return badRequest("", errors.New("empty body"))
	}
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if err := fn(d, key); err != nil {
			var reqErr *requestError
			if errors.As(err, &reqErr) {
				return err
			}
			return badRequest(key, err)
		}
		return nil
	}); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return reqErr
		}
		return badRequest("", err)
	}
	return nil
}

// maxNumberLen bounds the text of a numeric field.
const maxNumberLen = 32

// decodeNumberText returns the text of a JSON number or numeric string.
func decodeNumberText(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		return string(n), err
	default:
		return "", errors.New("expected number")
	}
}

// decodeDecimal accepts a JSON number or a numeric string in plain decimal
// notation.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := decodeNumberText(d)
	if err != nil {
		return decimal.Zero, err
	}
	if len(s) > maxNumberLen {
		return decimal.Zero, errors.New("number too long")
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, errors.New("exponent notation is not accepted")
	}
	return decimal.NewFromString(s)
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// decodeSelection reads {"kind", "name", "quantity", "contents"}.
func decodeSelection(w http.ResponseWriter, r *http.Request) (catalog.Selection, error) {
	var sel catalog.Selection
	err := decodeObject(w, r, false, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			var s string
			s, err = d.Str()
			sel.Kind = cart.Kind(s)
		case "name":
			sel.Name, err = d.Str()
		case "quantity":
			sel.Quantity, err = decodeDecimal(d)
		case "contents":
			sel.Contents, err = decodeStrings(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return sel, err
}

// instrumentFields collects the flat payment fields shared by checkout
// confirmation and balance payments.
type instrumentFields struct {
	method      string
	cardNumber  string
	cardType    string
	expiryMonth int
	expiryYear  int
	cvv         string
	holderName  string
	bankName    string
}

// decode handles key if it is a payment field. ok is false for other keys.
func (f *instrumentFields) decode(d *jx.Decoder, key string) (ok bool, err error) {
	switch key {
	case "method":
		f.method, err = d.Str()
	case "card_number":
		f.cardNumber, err = d.Str()
	case "card_type":
		f.cardType, err = d.Str()
	case "expiry_month":
		f.expiryMonth, err = d.Int()
	case "expiry_year":
		f.expiryYear, err = d.Int()
	case "cvv":
		f.cvv, err = d.Str()
	case "holder_name":
		f.holderName, err = d.Str()
	case "bank_name":
		f.bankName, err = d.Str()
	default:
		return false, nil
	}
	return true, err
}

func (f *instrumentFields) instrument() payment.Instrument {
	switch payment.Method(f.method) {
	case payment.MethodCredit:
		return payment.CreditCard(payment.Credit{
			CardNumber:  f.cardNumber,
			CardType:    f.cardType,
			ExpiryMonth: f.expiryMonth,
			ExpiryYear:  f.expiryYear,
			CVV:         f.cvv,
			HolderName:  f.holderName,
		})
	case payment.MethodDebit:
		return payment.DebitCard(payment.Debit{
			BankName:   f.bankName,
			CardNumber: f.cardNumber,
		})
	default:
		return payment.Instrument{Method: payment.Method(f.method)}
	}
}

func decodeInstrument(w http.ResponseWriter, r *http.Request) (payment.Instrument, error) {
	var f instrumentFields
	err := decodeObject(w, r, false, func(d *jx.Decoder, key string) error {
		ok, err := f.decode(d, key)
		if !ok {
			return d.Skip()
		}
		return err
	})
	return f.instrument(), err
}

// decodeBalancePayment reads {"amount", ...payment fields}. The amount is
// parsed as a user-entered money value.
func decodeBalancePayment(w http.ResponseWriter, r *http.Request) (decimal.Decimal, payment.Instrument, error) {
	var (
		f      instrumentFields
		amount string
		seen   bool
	)
	err := decodeObject(w, r, false, func(d *jx.Decoder, key string) error {
		if key == "amount" {
			seen = true
			var err error
			amount, err = decodeNumberText(d)
			return err
		}
		ok, err := f.decode(d, key)
		if !ok {
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return decimal.Zero, payment.Instrument{}, err
	}
	if !seen {
		return decimal.Zero, payment.Instrument{}, badRequest("amount", errors.New("required"))
	}
	d, err := money.Parse(amount)
	if err != nil {
		return decimal.Zero, payment.Instrument{}, err
	}
	return d, f.instrument(), nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest(name, err)
	}
	return b, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter as a local
// calendar day.
func queryDate(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return time.Time{}, badRequest(name, err)
	}
	return t, nil
}
