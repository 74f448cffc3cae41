package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"app-host/core/descriptor"

	"github.com/spf13/cobra"
)

var (
	validateStrict bool
	validateJSON   bool
)

// errInvalid is returned after the report has been printed.
var errInvalid = errors.New("descriptor is invalid")

// validateCmd checks the descriptor without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate app.yaml",
	Long: `Parses the descriptor and checks it against the schema and the application root.
Exits non-zero when any error is reported. --strict treats warnings as errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d, raw, err := descriptor.Load(cfg.App.Descriptor)
		if err != nil {
			return err
		}

		report := d.Validate(cfg.App.ValidationRoot())
		if validateStrict {
			report = report.Strict()
		}

		out := validateOutput{
			Path:   cfg.App.Descriptor,
			Digest: descriptor.Digest(raw),
			Valid:  report.Err() == nil,
			Issues: report.Issues,
		}
		if err := out.write(cmd.OutOrStdout(), validateJSON); err != nil {
			return err
		}
		if !out.Valid {
			return errInvalid
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the report as JSON")
	RootCmd.AddCommand(validateCmd)
}

type validateOutput struct {
	Path   string             `json:"path"`
	Digest string             `json:"digest"`
	Valid  bool               `json:"valid"`
	Issues []descriptor.Issue `json:"issues"`
}

func (o validateOutput) write(w io.Writer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	for _, issue := range o.Issues {
		fmt.Fprintln(w, issue.String())
	}
	status := "valid"
	if !o.Valid {
		status = "invalid"
	}
	_, err := fmt.Fprintf(w, "%s: %s (%d issues, digest %s)\n", o.Path, status, len(o.Issues), o.Digest)
	return err
}
