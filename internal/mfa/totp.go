// Package mfa реализует второй фактор аутентификации на основе TOTP.
package mfa

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrSize = 200

// Key описывает новый секрет TOTP в виде, пригодном для показа пользователю.
type Key struct {
	Secret string
	URL    string
	// PNG с otpauth-ссылкой в формате data URL.
	QRCode string
}

// TOTP генерирует секреты и проверяет одноразовые коды.
type TOTP struct {
	issuer string
	now    func() time.Time
}

// New создаёт генератор TOTP с указанным издателем, который увидит пользователь в приложении.
func New(issuer string) *TOTP {
	return &TOTP{issuer: issuer, now: time.Now}
}

// Generate создаёт новый секрет для учётной записи account.
func (t *TOTP) Generate(account string) (*Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
		SecretSize:  20,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	return &Key{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate проверяет код против секрета с допуском в один период.
func (t *TOTP) Validate(code, secret string) bool {
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
