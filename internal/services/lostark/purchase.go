package lostark

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Purchaser submits an instant buy for a product through the front site.
// The second password form serves a randomized keypad per request: each digit
// button displays one digit but posts an unrelated value, and the whole pad is
// tied together by a one-time randompadkey. The actual password never goes
// over the wire, only the keypad-mapped values.
type Purchaser struct {
	http           *resty.Client
	secondPassword string
	pcName         string
	worldID        string
}

func NewPurchaser(cookie, userAgent, secondPassword, pcName, worldID string) *Purchaser {
	client := resty.New()
	client.SetBaseURL(FrontBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Cookie", cookie)
	client.SetHeader("User-Agent", userAgent)

	return &Purchaser{
		http:           client,
		secondPassword: secondPassword,
		pcName:         pcName,
		worldID:        worldID,
	}
}

// Buy fetches a fresh keypad form, encrypts the second password against it,
// and submits the order. The raw response body is returned to the caller so
// the marketplace's own result message is passed through untouched.
func (p *Purchaser) Buy(ctx context.Context, productID, price string) ([]byte, error) {
	priceValue, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}

	formResp, err := p.http.R().
		SetContext(ctx).
		Get("/SecondPassword/GetSecondPasswordForm?type=auction&status=1")
	if err != nil {
		return nil, fmt.Errorf("fetch second password form: %w", err)
	}
	if formResp.IsError() {
		return nil, fmt.Errorf("second password form returned %s", formResp.Status())
	}

	keypad, padKey, err := ParseSecondPasswordForm(bytes.NewReader(formResp.Body()))
	if err != nil {
		return nil, err
	}

	encrypted, err := EncryptPassword(p.secondPassword, keypad)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("productId", productID)
	form.Set("worldId", p.worldID)
	form.Set("pcName", p.pcName)
	form.Set("price", strconv.Itoa(int(priceValue)))
	form.Set("pheon", "0")
	form.Set("password", encrypted+"|"+padKey)

	buyResp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode()).
		Post("/Auction/SetAuctionBuy")
	if err != nil {
		return nil, fmt.Errorf("submit buy: %w", err)
	}
	if buyResp.IsError() {
		return nil, fmt.Errorf("buy returned %s: %s", buyResp.Status(), buyResp.Body())
	}

	return buyResp.Body(), nil
}

// ParseSecondPasswordForm extracts the displayed-digit to posted-value keypad
// mapping and the one-time randompadkey from the form HTML.
func ParseSecondPasswordForm(r io.Reader) (map[string]string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("parse second password form: %w", err)
	}

	keypad := make(map[string]string)
	doc.Find(`button[name="btnRandompad"]`).Each(func(_ int, btn *goquery.Selection) {
		displayed := strings.TrimSpace(btn.Text())
		value, _ := btn.Attr("value")
		if displayed != "" && value != "" {
			keypad[displayed] = value
		}
	})
	if len(keypad) == 0 {
		return nil, "", fmt.Errorf("second password form has no keypad")
	}

	padKey, ok := doc.Find("button.button--password-confirm").Attr("data-randompadkey")
	if !ok || padKey == "" {
		return nil, "", fmt.Errorf("second password form has no randompadkey")
	}

	return keypad, padKey, nil
}

// EncryptPassword maps each password digit through the randomized keypad.
func EncryptPassword(password string, keypad map[string]string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("second password not configured")
	}

	var encrypted strings.Builder
	for _, digit := range password {
		value, ok := keypad[string(digit)]
		if !ok {
			return "", fmt.Errorf("keypad has no mapping for a password digit")
		}
		encrypted.WriteString(value)
	}
	return encrypted.String(), nil
}
