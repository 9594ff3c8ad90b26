package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/models"
	"tuitionpay/backend/services/student-portal/internal/service"
	"tuitionpay/backend/services/student-portal/internal/store"
)

// describe turns an error into the message shown to the user.
func describe(err error) string {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, store.ErrSessionCorrupted):
		return "saved session was unreadable and has been cleared; please log in again"
	case errors.Is(err, store.ErrSessionExpired):
		return "saved session has expired; please log in again"
	case errors.Is(err, store.ErrNoSession):
		return "not logged in; run `student-portal login` first"
	case errors.Is(err, service.ErrForbidden):
		return "this command needs a superadmin account"
	case errors.Is(err, store.ErrConnection):
		return "cannot reach the billing API; check your connection and try again"
	case errors.Is(err, store.ErrIncompleteCheckout):
		return "the billing API did not return a payment link; try again later"
	case errors.Is(err, store.ErrEmptyCart):
		return "cart is empty"
	case errors.Is(err, store.ErrDuplicateItem):
		return "billing is already in the cart"
	case errors.Is(err, store.ErrAlreadyPaid):
		return "billing is already paid"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return err.Error()
	}
}

// formatRupiah renders 3500000 as Rp3.500.000.
func formatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "Rp" + b.String()
}

func period(month, year int) string {
	if month <= 0 || year <= 0 {
		return "-"
	}
	return fmt.Sprintf("%02d/%d", month, year)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
}

func printBillings(w io.Writer, list []models.Billing) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDESCRIPTION\tPERIOD\tAMOUNT\tSTATUS")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Description, period(b.Month, b.Year), formatRupiah(b.Amount), b.Status)
	}
	tw.Flush()
}

func printCart(w io.Writer, items []models.CartItem, total int64) {
	if len(items) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "BILLING\tDESCRIPTION\tPERIOD\tAMOUNT")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.BillingID, item.Description, period(item.Month, item.Year), formatRupiah(item.Amount))
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\n", formatRupiah(total))
	tw.Flush()
}

func printTransactions(w io.Writer, list []models.Transaction) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no transactions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tBILLING\tORDER\tAMOUNT\tSTATUS\tUPDATED")
	for _, tx := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.BillingID, tx.OrderID, formatRupiah(tx.Amount), tx.Status, tx.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
