package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE COMPLIANCE
// =============================================================================

// ValidateCompliance returns a High Compliance alert when the expense amount
// is strictly greater than the contract's remaining balance, and nil
// otherwise. A nil contract (unlinked or unresolved) is not an error and
// yields nil. Negative amounts or balances are compared as given.
func (e *Engine) ValidateCompliance(exp Expense, contract *Contract, now time.Time) *Alert {
	if contract == nil {
		return nil
	}
	if !exp.Amount.GreaterThan(contract.Balance) {
		return nil
	}
	return &Alert{
		ID:       e.ids.NewID(),
		Type:     AlertCompliance,
		Severity: SeverityHigh,
		Message: fmt.Sprintf("Risco de Compliance: Despesa de %s excede o saldo do contrato %s (Saldo: %s).",
			FormatBRL(exp.Amount), contract.ContractNumber, FormatBRL(contract.Balance)),
		Date:            now,
		RelatedEntityID: exp.ID,
	}
}

// FormatBRL renders an amount the way the office reads it: R$ 1.234.567,89.
func FormatBRL(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	fixed := v.StringFixed(2)
	intPart, frac := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	grouped := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, intPart[i])
	}
	return "R$ " + sign + string(grouped) + "," + frac
}
