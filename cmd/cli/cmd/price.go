// Package cmd - price command
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ocpi-cost/core/v211"
	"ocpi-cost/core/v221"
	"ocpi-cost/internal/config"
	"ocpi-cost/internal/logging"
)

var (
	ocpiVersion  string
	outputFormat string
	showDetails  bool
)

// priceCmd represents the price command
var priceCmd = &cobra.Command{
	Use:   "price <cdr.json> [tariff.json]",
	Short: "Price a charge detail record against a tariff",
	Long: `Calculate the cost of one charging session.

The CDR and tariff are OCPI JSON documents. For OCPI 2.2.1 the tariff
file may be omitted when the CDR embeds its own tariff list; OCPI 2.1.1
always requires a tariff file.

Examples:
  ocpi-cost price cdr.json tariff.json
  ocpi-cost price --ocpi-version 2.1.1 cdr.json tariff.json
  ocpi-cost price --format json --details cdr.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringVar(&ocpiVersion, "ocpi-version", "", "OCPI version (2.1.1, 2.2.1)")
	priceCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (text, json)")
	priceCmd.Flags().BoolVarP(&showDetails, "details", "d", false, "show per-dimension breakdown")
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	startTime := time.Now()

	version := ocpiVersion
	if version == "" {
		version = cfg.Pricing.DefaultOCPIVersion
	}
	format := outputFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	details := showDetails || cfg.Output.ShowDetails

	cdrData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading cdr: %w", err)
	}

	var tariffData []byte
	if len(args) > 1 {
		if tariffData, err = os.ReadFile(args[1]); err != nil {
			return fmt.Errorf("reading tariff: %w", err)
		}
	}

	runID := uuid.NewString()
	logging.Info("Pricing CDR",
		zap.String("run_id", runID),
		zap.String("ocpi_version", version))

	switch version {
	case "2.1.1":
		err = priceV211(cdrData, tariffData, format, details)
	case "2.2.1":
		err = priceV221(cdrData, tariffData, format, details)
	default:
		return fmt.Errorf("unsupported OCPI version: %s", version)
	}
	if err != nil {
		return err
	}

	logging.Debug("Pricing done",
		zap.String("run_id", runID),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

func priceV211(cdrData, tariffData []byte, format string, details bool) error {
	if tariffData == nil {
		return fmt.Errorf("OCPI 2.1.1 requires a tariff file")
	}

	cdr, err := v211.DecodeCdr(cdrData)
	if err != nil {
		return err
	}
	tariff, err := v211.DecodeTariff(tariffData)
	if err != nil {
		return err
	}

	state, err := v211.NewPricer(cdr, tariff).Calculate()
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(map[string]interface{}{
			"cdr_id":     cdr.ID,
			"currency":   cdr.Currency,
			"total_cost": state.TotalCost,
		})
	}

	fmt.Printf("Total cost: %s %s\n", state.TotalCost, cdr.Currency)
	if details {
		fmt.Printf("  Flat:    %s\n", state.FlatCost)
		fmt.Printf("  Energy:  %s (%s kWh billed)\n", state.EnergyCost, state.BilledEnergy)
		fmt.Printf("  Time:    %s (%s h billed)\n", state.ChargingCost, state.BilledChargingTime)
		fmt.Printf("  Parking: %s (%s h billed)\n", state.ParkingCost, state.BilledParkingTime)
	}
	return nil
}

func priceV221(cdrData, tariffData []byte, format string, details bool) error {
	cdr, err := v221.DecodeCdr(cdrData)
	if err != nil {
		return err
	}

	var tariff *v221.Tariff
	if tariffData != nil {
		if tariff, err = v221.DecodeTariff(tariffData); err != nil {
			return err
		}
	}

	result, err := v221.Calculate(cdr, tariff)
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(map[string]interface{}{
			"cdr_id":   cdr.ID,
			"currency": cdr.Currency,
			"excl_vat": result.Price.ExclVat,
			"incl_vat": result.Price.InclVat,
		})
	}

	fmt.Printf("Total cost: %s %s (excl. VAT), %s %s (incl. VAT)\n",
		result.Price.ExclVat, cdr.Currency, result.Price.InclVat, cdr.Currency)
	if details {
		fmt.Printf("  Energy:  %s kWh\n", result.TotalEnergy)
		fmt.Printf("  Time:    %s h\n", result.TotalTime)
		fmt.Printf("  Parking: %s h\n", result.TotalParkingTime)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
