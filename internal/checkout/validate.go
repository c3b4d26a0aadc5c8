package checkout

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/vladislavdragonenkov/audiophile/internal/domain"
)

const minPhoneLength = 10

// Validate проверяет форму оформления и возвращает нормализованную копию.
// Пробелы по краям обрезаются; для оплаты наличными реквизиты e-Money отбрасываются.
func Validate(form domain.CheckoutForm) (domain.CheckoutForm, error) {
	f := domain.CheckoutForm{
		Name:          strings.TrimSpace(form.Name),
		Email:         strings.TrimSpace(form.Email),
		Phone:         strings.TrimSpace(form.Phone),
		Address:       strings.TrimSpace(form.Address),
		ZipCode:       strings.TrimSpace(form.ZipCode),
		City:          strings.TrimSpace(form.City),
		Country:       strings.TrimSpace(form.Country),
		PaymentMethod: domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(form.PaymentMethod)))),
		EMoneyNumber:  strings.TrimSpace(form.EMoneyNumber),
		EMoneyPin:     strings.TrimSpace(form.EMoneyPin),
	}

	verr := &domain.ValidationError{}
	required := []struct {
		field, value, message string
	}{
		{domain.FieldName, f.Name, "Name is required"},
		{domain.FieldAddress, f.Address, "Address is required"},
		{domain.FieldZipCode, f.ZipCode, "ZIP code is required"},
		{domain.FieldCity, f.City, "City is required"},
		{domain.FieldCountry, f.Country, "Country is required"},
	}
	for _, r := range required {
		if r.value == "" {
			verr.Add(r.field, r.message)
		}
	}

	if !validEmail(f.Email) {
		verr.Add(domain.FieldEmail, "Invalid email address")
	}
	if utf8.RuneCountInString(f.Phone) < minPhoneLength {
		verr.Add(domain.FieldPhone, "Phone number must be at least 10 digits")
	}

	switch f.PaymentMethod {
	case domain.PaymentMethodEMoney:
		if f.EMoneyNumber == "" {
			verr.Add(domain.FieldEMoneyNumber, "e-Money number is required")
		}
		if f.EMoneyPin == "" {
			verr.Add(domain.FieldEMoneyPin, "e-Money PIN is required")
		}
	case domain.PaymentMethodCash:
		f.EMoneyNumber = ""
		f.EMoneyPin = ""
	default:
		verr.Add(domain.FieldPaymentMethod, "Payment method must be cash or emoney")
	}

	if err := verr.OrErr(); err != nil {
		return domain.CheckoutForm{}, err
	}
	return f, nil
}

// validEmail принимает только голый адрес addr-spec с доменом, содержащим точку.
func validEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domainPart := s[at+1:]
	dot := strings.LastIndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
