package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-overview/internal/apperr"
	"github.com/dvloznov/finance-overview/internal/coordinator"
	"github.com/dvloznov/finance-overview/internal/domain"
	"github.com/dvloznov/finance-overview/internal/logger"
)

func newInvoicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice", "inv"},
		Short:   "List and manage invoices",
	}
	cmd.AddCommand(
		newInvoicesListCmd(a),
		newInvoicesAddCmd(a),
		newInvoicesEditCmd(a),
		newInvoicesPayCmd(a),
		newInvoicesDeleteCmd(a),
		newInvoicesUploadCmd(a),
		newInvoicesViewCmd(a),
	)
	return cmd
}

func newInvoicesListCmd(a *app) *cobra.Command {
	var unpaid bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices by due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.refresh(cmd.Context(), coordinator.SourceInvoices)
			now := domain.Today()
			t := newTable(cmd.OutOrStdout(), "ID", "Issuer", "Amount", "Due", "Urgency", "Status", "Bankgiro", "Plusgiro", "OCR", "PDF")
			for _, inv := range v.Invoices {
				if unpaid && inv.Paid() {
					continue
				}
				status, urgency := "unpaid", domain.DueUrgency(inv.DueDate, now).String()
				if inv.Paid() {
					status, urgency = "paid", "-"
				} else if inv.NeedsCompletion {
					status = "incomplete"
				}
				pdf := ""
				if inv.HasDocument() {
					pdf = "yes"
				}
				t.Append([]string{
					strconv.FormatInt(inv.ID, 10), inv.Issuer, inv.Amount.Display(), inv.DueDate.String(),
					urgency, status, inv.Bankgiro, inv.Plusgiro, inv.OCR, pdf,
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&unpaid, "unpaid", false, "only show unpaid invoices")
	return cmd
}

// invoiceFlags holds the editable invoice fields as raw flag text.
type invoiceFlags struct {
	issuer, amount, due, bankgiro, plusgiro, ocr string
}

func (f *invoiceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.issuer, "issuer", "", "issuer name")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 1250.00")
	cmd.Flags().StringVar(&f.due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.bankgiro, "bankgiro", "", "bankgiro number")
	cmd.Flags().StringVar(&f.plusgiro, "plusgiro", "", "plusgiro number")
	cmd.Flags().StringVar(&f.ocr, "ocr", "", "OCR reference")
}

func (f *invoiceFlags) draft() (domain.InvoiceDraft, error) {
	amount, err := parseAmount("cli.invoices.add", f.amount)
	if err != nil {
		return domain.InvoiceDraft{}, err
	}
	due, err := parseDate("cli.invoices.add", "due", f.due)
	if err != nil {
		return domain.InvoiceDraft{}, err
	}
	return domain.InvoiceDraft{
		Issuer: f.issuer, Amount: amount, DueDate: due,
		Bankgiro: f.bankgiro, Plusgiro: f.plusgiro, OCR: f.ocr,
	}, nil
}

func (f *invoiceFlags) patch(cmd *cobra.Command) (domain.InvoicePatch, error) {
	const op = "cli.invoices.edit"
	var p domain.InvoicePatch
	changed := cmd.Flags().Changed
	if changed("issuer") {
		p.Issuer = &f.issuer
	}
	if changed("amount") {
		m, err := parseAmount(op, f.amount)
		if err != nil {
			return p, err
		}
		p.Amount = &m
	}
	if changed("due") {
		d, err := parseDate(op, "due", f.due)
		if err != nil {
			return p, err
		}
		p.DueDate = &d
	}
	if changed("bankgiro") {
		p.Bankgiro = &f.bankgiro
	}
	if changed("plusgiro") {
		p.Plusgiro = &f.plusgiro
	}
	if changed("ocr") {
		p.OCR = &f.ocr
	}
	return p, nil
}

func newInvoicesAddCmd(a *app) *cobra.Command {
	var f invoiceFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enter an invoice manually",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := f.draft()
			if err != nil {
				return err
			}
			inv, err := a.coord.CreateInvoice(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created invoice %d\n", inv.ID)
			return nil
		},
	}
	f.register(cmd)
	cmd.MarkFlagRequired("issuer")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("due")
	return cmd
}

func newInvoicesEditCmd(a *app) *cobra.Command {
	var f invoiceFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change invoice fields; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}
			inv, err := a.coord.EditInvoice(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated invoice %d\n", inv.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newInvoicesPayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pay ID",
		Short: "Mark an invoice as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out, err := a.coord.MarkPaid(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out.AlreadyPaid {
				fmt.Fprintf(cmd.OutOrStdout(), "Invoice %d was already paid\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invoice %d marked as paid\n", id)
			return nil
		},
	}
}

func newInvoicesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an invoice and its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.coord.DeleteInvoice(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %d\n", id)
			return nil
		},
	}
}

func newInvoicesUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE.pdf",
		Short: "Upload a PDF invoice for parsing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.EqualFold(filepath.Ext(path), ".pdf") {
				return apperr.Validation("cli.invoices.upload", "file", "only PDF files can be uploaded")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			inv, err := a.coord.UploadInvoice(cmd.Context(), filepath.Base(path), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as invoice %d; fields are filled in once parsing finishes\n",
				filepath.Base(path), inv.ID)
			return nil
		},
	}
}

func newInvoicesViewCmd(a *app) *cobra.Command {
	var out, listen string
	cmd := &cobra.Command{
		Use:   "view ID",
		Short: "Open the PDF attached to an invoice",
		Long: `view resolves the invoice's PDF into a short-lived handle. With --out the
document is written to a file; otherwise it is served locally until the
handle expires or the command is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			h, err := a.coord.ResolveDocument(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out != "" {
				_, content, err := a.coord.Documents().Open(h.Token)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, humanize.Bytes(uint64(h.Size)))
				return nil
			}
			return serveDocument(cmd, a, h.Token, h.ExpiresAt, listen)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the PDF to this file instead of serving it")
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:0", "address to serve the PDF on")
	return cmd
}

func serveDocument(cmd *cobra.Command, a *app, token string, expires time.Time, listen string) error {
	log := logger.FromContext(cmd.Context())
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/documents/", a.coord.Documents().Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving http://%s/documents/%s until %s (%s)\n",
		ln.Addr(), token, expires.Format(time.Kitchen), humanize.Time(expires))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithDeadline(ctx, expires)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Debug().Str("token", token).Msg("Document server stopped")
	return nil
}

func parseAmount(op, s string) (domain.Money, error) {
	m, err := domain.ParseMoney(s)
	if err != nil {
		return domain.Money{}, apperr.Validation(op, "amount", fmt.Sprintf("%q is not an amount", s))
	}
	return m, nil
}

func parseDate(op, field, s string) (domain.Date, error) {
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, apperr.Validation(op, field, fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return d, nil
}
