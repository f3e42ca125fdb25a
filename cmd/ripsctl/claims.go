package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ripsnc/internal/domain"
	"ripsnc/internal/tabular"
)

func newReconcileCmd(a *app) *cobra.Command {
	var (
		note, reference, format string
		sign                    int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Complete a credit note claims document from its invoice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := a.open(ctx, note, reference)
			if err != nil {
				return err
			}
			sum, err := a.sessions.Reconcile(ctx, id, sign)
			if err != nil {
				return err
			}
			a.log.Info("reconciled",
				zap.Int("modified", sum.Modified),
				zap.Int("already_had_services", sum.AlreadyHadServices),
				zap.Int("demographics_completed", sum.DemographicsCompleted),
				zap.Strings("unmatched", sum.Unmatched))
			fmt.Fprintf(cmd.ErrOrStderr(), "modificados: %d, ya tenían servicios: %d, sin referencia: %d\n",
				sum.Modified, sum.AlreadyHadServices, len(sum.Unmatched))

			out, err := a.sessions.Export(ctx, id, domain.ExportFormat(format))
			if err != nil {
				return err
			}
			return a.write(cmd, out.Data)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "credit note claims JSON")
	cmd.Flags().StringVar(&reference, "reference", "", "invoice claims JSON")
	cmd.Flags().IntVar(&sign, "sign", 0, "sign for copied amounts, 1 or -1 (default from RIPSNC_RIPS_FORCE_SIGN)")
	cmd.Flags().StringVar(&format, "format", string(domain.ExportFormatJSON), "json or xml")
	_ = cmd.MarkFlagRequired("note")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func newTemplateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Export or apply the service edit table",
	}

	var note, reference, format string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the edit table of a claims document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := a.open(ctx, note, reference)
			if err != nil {
				return err
			}
			if format == "" {
				format = string(domain.ExportFormatXLSX)
				if a.output != "" {
					f, ferr := tabular.FormatFromFilename(a.output)
					if ferr != nil {
						return ferr
					}
					format = string(f)
				}
			}
			out, err := a.sessions.ExportTemplate(ctx, id, domain.ExportFormat(format))
			if err != nil {
				return err
			}
			return a.write(cmd, out.Data)
		},
	}
	export.Flags().StringVar(&note, "note", "", "credit note claims JSON")
	export.Flags().StringVar(&reference, "reference", "", "invoice claims JSON, fills the reference columns")
	export.Flags().StringVar(&format, "format", "", "xlsx, csv or json (default from the output name, else xlsx)")
	_ = export.MarkFlagRequired("note")

	var applyNote, applyRef, table, outFormat string
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply an edited table to a claims document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := a.open(ctx, applyNote, applyRef)
			if err != nil {
				return err
			}
			tf, err := tabular.FormatFromFilename(table)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(table)
			if err != nil {
				return err
			}
			res, err := a.sessions.ApplyTemplate(ctx, id, tf, bytes.NewReader(data))
			if err != nil {
				return err
			}
			for _, e := range res.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
			out, err := a.sessions.Export(ctx, id, domain.ExportFormat(outFormat))
			if err != nil {
				return err
			}
			return a.write(cmd, out.Data)
		},
	}
	apply.Flags().StringVar(&applyNote, "note", "", "credit note claims JSON")
	apply.Flags().StringVar(&applyRef, "reference", "", "invoice claims JSON")
	apply.Flags().StringVar(&table, "table", "", "edited table (xlsx, csv or json)")
	apply.Flags().StringVar(&outFormat, "format", string(domain.ExportFormatJSON), "json or xml")
	_ = apply.MarkFlagRequired("note")
	_ = apply.MarkFlagRequired("table")

	cmd.AddCommand(export, apply)
	return cmd
}

func newXMLCmd(a *app) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "xml",
		Short: "Render a claims document as XML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := a.open(ctx, note, "")
			if err != nil {
				return err
			}
			out, err := a.sessions.Export(ctx, id, domain.ExportFormatXML)
			if err != nil {
				return err
			}
			return a.write(cmd, out.Data)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "claims JSON")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func newEmbedCmd(a *app) *cobra.Command {
	var note, template, family string
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed the claims XML in the CDATA description of an envelope",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, err := a.open(ctx, note, "")
			if err != nil {
				return err
			}
			tpl, err := os.ReadFile(template)
			if err != nil {
				return err
			}
			out, err := a.sessions.EmbedXML(ctx, id, tpl, family)
			if err != nil {
				return err
			}
			return a.write(cmd, out.Data)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "claims JSON")
	cmd.Flags().StringVar(&template, "template", "", "envelope XML")
	cmd.Flags().StringVar(&family, "family", "", "creditnote or rips; empty skips the check")
	_ = cmd.MarkFlagRequired("note")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
