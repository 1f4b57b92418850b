package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terra-clan/carprice-engine/internal/models"
)

var predictFlags struct {
	categorical map[string]*string
	numeric     map[string]*float64
	asJSON      bool
	encode      bool
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate the price of one car",
	Long:  "Load the artifacts, encode the given attributes and print the formatted price.\nUnseen categorical values fall back to the baseline category.",
	Args:  cobra.NoArgs,
	RunE:  runPredict,
}

// flagName turns a form key into a flag name
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func init() {
	f := predictCmd.Flags()

	predictFlags.categorical = make(map[string]*string, len(models.CategoricalFields))
	for _, field := range models.CategoricalFields {
		predictFlags.categorical[field] = f.String(flagName(field), "", "Car "+strings.ReplaceAll(field, "_", " "))
	}

	predictFlags.numeric = make(map[string]*float64, len(models.NumericInputs))
	for _, in := range models.NumericInputs {
		predictFlags.numeric[in.FormKey] = f.Float64(flagName(in.FormKey), in.Default, in.Label)
	}

	f.BoolVar(&predictFlags.asJSON, "json", false, "Print the full prediction as JSON")
	f.BoolVar(&predictFlags.encode, "encode", false, "Print the encoded feature vector instead of a price")
}

// formValue serves the flags through the same parser the HTML form uses
func formValue(key string) string {
	if v, ok := predictFlags.categorical[key]; ok {
		return *v
	}
	if v, ok := predictFlags.numeric[key]; ok {
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	return ""
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(os.Stderr)
	if err != nil {
		return err
	}

	svc, err := loadService(cfg)
	if err != nil {
		return err
	}

	attrs, err := models.ParseForm(formValue)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if predictFlags.encode {
		vec, err := svc.Encode(attrs)
		if err != nil {
			return err
		}
		for i, col := range vec.Columns {
			fmt.Fprintf(out, "%-32s %g\n", col, vec.Values[i])
		}
		return nil
	}

	prediction, err := svc.Estimate(attrs)
	if err != nil {
		return err
	}

	if predictFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(prediction)
	}

	fmt.Fprintf(out, "Predicted Value: %s\n", prediction.Formatted)
	return nil
}
