package wallet

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientBalance: el usuario no tiene monedas suficientes.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Wallet es la billetera de monedas que gatea las acciones pagas.
// Es un colaborador externo: acá solo vive su contrato.
type Wallet interface {
	// Debit descuenta amount monedas del usuario. Devuelve
	// ErrInsufficientBalance si el saldo no alcanza.
	Debit(ctx context.Context, userID string, amount int, reason string) error
}
