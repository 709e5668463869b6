// Package devwallet es la billetera de desarrollo: acepta todo débito.
// Se usa cuando no hay servicio de monedas configurado.
package devwallet

import (
	"context"

	"cattle-breeding-timeline/internal/ports/wallet"
)

type Wallet struct{}

func New() Wallet { return Wallet{} }

func (Wallet) Debit(ctx context.Context, userID string, amount int, reason string) error {
	return nil
}

var _ wallet.Wallet = Wallet{}
