package wa

import (
	"context"
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
)

// pair links this process as a new device. A QR code is rendered in the
// terminal; when a pairing phone number is configured an 8-character
// pairing code is requested as well.
func (m *Manager) pair(ctx context.Context) error {
	qrChan, err := m.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get qr channel: %w", err)
	}
	if err := m.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if m.pairPhone != "" {
		code, err := m.client.PairPhone(ctx, m.pairPhone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
		if err != nil {
			m.log.Error().Err(err).Msg("pairing code request failed, falling back to QR")
		} else {
			m.log.Info().Str("code", code).Msg("enter this pairing code on your phone")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-qrChan:
			if !ok {
				return fmt.Errorf("qr channel closed before pairing completed")
			}
			switch evt.Event {
			case "code":
				fmt.Println("Scan this QR code with WhatsApp (Settings > Linked Devices):")
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			case "success":
				m.log.Info().Msg("pairing successful")
				return nil
			case "timeout":
				return fmt.Errorf("pairing timed out")
			default:
				m.log.Debug().Str("event", evt.Event).Msg("pairing event")
			}
		}
	}
}
