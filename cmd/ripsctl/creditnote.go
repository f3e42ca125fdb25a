package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ripsnc/internal/creditnote"
	"ripsnc/internal/domain"
	"ripsnc/internal/provider/afacturar"
	"ripsnc/internal/service"
)

func newBuildCmd(a *app) *cobra.Command {
	var sections string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a provider payload from credit note sections (YAML or JSON)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s creditnote.Sections
			if err := readStructured(sections, &s); err != nil {
				return err
			}
			doc, err := a.notes.Build(cmd.Context(), s)
			if err != nil {
				return err
			}
			data, err := encodeJSON(doc)
			if err != nil {
				return err
			}
			return a.write(cmd, data)
		},
	}
	cmd.Flags().StringVar(&sections, "sections", "", "sections file (.yaml, .yml or .json)")
	_ = cmd.MarkFlagRequired("sections")
	return cmd
}

func newAttachedCmd(a *app) *cobra.Command {
	var template, params, note string
	cmd := &cobra.Command{
		Use:   "attached",
		Short: "Rewrite an AttachedDocument template with new note values",
		Long: `Rewrites the identifiers and credit note lines of an AttachedDocument.
Amounts come from the params file; when it has none, every billable service
of --note is used.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tpl, err := os.ReadFile(template)
			if err != nil {
				return err
			}
			input := service.AttachedInput{Template: tpl}
			if err := readStructured(params, &input.Params); err != nil {
				return err
			}
			if note != "" {
				id, err := a.open(ctx, note, "")
				if err != nil {
					return err
				}
				input.SessionID = &id
			}
			out, err := a.notes.AttachedDocument(ctx, input)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "AttachedDocument XML")
	cmd.Flags().StringVar(&params, "params", "", "params file with id_nota_credito, parent_document_id, mode (UNA_LINEA or POR_SERVICIO), amounts")
	cmd.Flags().StringVar(&note, "note", "", "claims JSON whose billable services supply the amounts")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("params")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		payload, env, endpoint string
		timeout                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a credit note payload to the invoicing provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var doc creditnote.Document
			if err := readStructured(payload, &doc); err != nil {
				return err
			}
			client := afacturar.NewClient(&a.cfg.Provider)
			if endpoint != "" {
				client = afacturar.NewClientWithEndpoint(&a.cfg.Provider, endpoint)
			}
			environment := domain.Environment(env)
			if env == "" {
				environment = domain.Environment(a.cfg.Provider.DefaultEnvironment)
			}
			svc := service.NewSubmissionService(client, nil, environment, a.log)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			out, err := svc.Submit(ctx, service.SubmitInput{Environment: environment, Payload: &doc})
			if err != nil {
				return err
			}
			a.log.Info("submitted", zap.String("url", out.URL), zap.Int("status_code", out.StatusCode))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d %s\n", out.URL, out.StatusCode, out.Status)
			if err := a.write(cmd, []byte(out.Response)); err != nil {
				return err
			}
			if out.Status != domain.SubmissionStatusAccepted {
				return fmt.Errorf("provider answered %d", out.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "payload JSON produced by build")
	cmd.Flags().StringVar(&env, "env", "", "pruebas, habilitacion or produccion (default from config)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "override the provider base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline for the request")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}
