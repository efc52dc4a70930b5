package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/models"
	"promptgrid/internal/prompt"
	"promptgrid/internal/translator"
)

// formFlags mirror the web form. Flags left unset fall back to the form
// defaults from configuration.
type formFlags struct {
	product   string
	style     string
	template  string
	model     string
	stop      string
	temp      float64
	maxTokens int
	presence  float64
	frequency float64

	jsonOut bool
	plain   bool
}

func (f *formFlags) register(cmd *cobra.Command, withParams bool) {
	cmd.Flags().StringVar(&f.product, "product", config.DefaultProduct, "Product name")
	cmd.Flags().StringVar(&f.style, "style", config.DefaultStyle, "Writing style, sent as the system message")
	cmd.Flags().StringVar(&f.template, "template", config.DefaultTemplate, "Description template; {product} is replaced by the product name")
	cmd.Flags().StringVarP(&f.model, "model", "m", config.DefaultModel, "Model identifier")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the JSON response instead of formatted output")

	if withParams {
		cmd.Flags().Float64VarP(&f.temp, "temperature", "t", 0.7, "Creativity, 0.0 to 1.2 in steps of 0.1")
		cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 150, fmt.Sprintf("Length, one of %v", config.MaxTokenOptions))
		cmd.Flags().Float64Var(&f.presence, "presence-penalty", 0, "Topic focus, 0.0 to 1.5 in steps of 0.1")
		cmd.Flags().Float64Var(&f.frequency, "frequency-penalty", 0, "Repetition control, 0.0 to 1.5 in steps of 0.1")
		cmd.Flags().StringVar(&f.stop, "stop", "", "Comma-separated stop sequences")
		cmd.Flags().BoolVar(&f.plain, "plain", false, "Print the raw completion without markdown rendering")
	}
}

func (f *formFlags) input(cmd *cobra.Command, defaults config.FormConfig) translator.Input {
	changed := cmd.Flags().Changed
	pick := func(name, flag, fallback string) string {
		if changed(name) {
			return flag
		}
		return fallback
	}
	pickFloat := func(name string, flag, fallback float64) float64 {
		if changed(name) {
			return flag
		}
		return fallback
	}

	maxTokens := defaults.MaxTokens
	if changed("max-tokens") {
		maxTokens = f.maxTokens
	}

	return translator.Input{
		Product:  pick("product", f.product, defaults.Product),
		Style:    pick("style", f.style, defaults.Style),
		Template: pick("template", f.template, defaults.Template),
		Model:    pick("model", f.model, defaults.Model),
		Params: models.Params{
			Temperature:      pickFloat("temperature", f.temp, defaults.Temperature),
			MaxTokens:        maxTokens,
			PresencePenalty:  pickFloat("presence-penalty", f.presence, defaults.PresencePenalty),
			FrequencyPenalty: pickFloat("frequency-penalty", f.frequency, defaults.FrequencyPenalty),
		},
		Stop: prompt.ParseStopSequences(pick("stop", f.stop, defaults.Stop)),
	}
}

func (a *app) prepare(in translator.Input, checkParams bool) (translator.Job, error) {
	return translator.Prepare(in, a.registry, translator.PrepareOptions{
		CheckParams: checkParams,
		Strict:      a.cfg.Template.IsStrict(),
	})
}

const generateLongDesc = `Generate a single product description.

Unset flags fall back to the form defaults from the configuration file. A
failed completion is printed as "Error: <reason>" in place of the text.

Example:
  promptgrid generate --product "Noise-cancelling headphones"
  promptgrid generate --temperature 1.2 --max-tokens 300 --stop "END, ###"`

func newGenerateCmd(g *globalFlags) *cobra.Command {
	f := &formFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a single description",
		Long:  generateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.newApp(cmd)
			if err != nil {
				return err
			}

			j, err := a.prepare(f.input(cmd, a.cfg.Form), true)
			if err != nil {
				return err
			}

			result := a.generator.Generate(cmd.Context(), j.Request())

			out := cmd.OutOrStdout()
			switch {
			case f.jsonOut:
				return writeJSON(out, translator.GenerateResponse{
					Model:  j.Model,
					Prompt: j.User,
					Result: translator.FromResult(result),
				})
			case f.plain || !result.OK():
				_, err = fmt.Fprintln(out, result.String())
				return err
			default:
				_, err = fmt.Fprintln(out, renderMarkdown(result.Text()))
				return err
			}
		},
	}

	f.register(cmd, true)

	return cmd
}

const gridLongDesc = `Run the fixed comparison grid.

Five completions are requested one after another with these parameters:

  temperature  max tokens  presence  frequency
  0.0          50          0.0       0.0
  0.7          150         0.0       0.0
  1.2          300         0.0       0.0
  0.7          150         1.5       0.0
  0.7          150         0.0       1.5

No stop sequences are sent. Failed rows show "Error: <reason>".`

func newGridCmd(g *globalFlags) *cobra.Command {
	f := &formFlags{}

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Run the five-row comparison grid",
		Long:  gridLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.newApp(cmd)
			if err != nil {
				return err
			}

			j, err := a.prepare(f.input(cmd, a.cfg.Form), false)
			if err != nil {
				return err
			}

			rows := a.generator.Grid(cmd.Context(), j.Model, j.System, j.User)
			return writeRows(cmd.OutOrStdout(), f.jsonOut, j, rows, false)
		},
	}

	f.register(cmd, false)

	return cmd
}

const sweepLongDesc = `Run every combination of

  temperature        0.0, 0.7, 1.2
  max tokens         50, 150, 300
  presence penalty   0.0, 1.5
  frequency penalty  0.0, 1.5

Pin a parameter to hold it at a single value. The stop sequence is only sent
when --pin-stop is given.

Example:
  promptgrid sweep --pin-temperature 0.7 --pin-max-tokens 150
  promptgrid sweep --pin-stop "END"`

func newSweepCmd(g *globalFlags) *cobra.Command {
	f := &formFlags{}
	var (
		pinTemp      float64
		pinTokens    int
		pinPresence  float64
		pinFrequency float64
		pinStop      string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a parameter sweep",
		Long:  sweepLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sweep generator.Sweep
			if cmd.Flags().Changed("pin-temperature") {
				sweep.Temperature = &pinTemp
			}
			if cmd.Flags().Changed("pin-max-tokens") {
				sweep.MaxTokens = &pinTokens
			}
			if cmd.Flags().Changed("pin-presence-penalty") {
				sweep.PresencePenalty = &pinPresence
			}
			if cmd.Flags().Changed("pin-frequency-penalty") {
				sweep.FrequencyPenalty = &pinFrequency
			}
			sweep.Stop = pinStop

			if err := translator.ValidatePins(sweep); err != nil {
				return err
			}

			a, err := g.newApp(cmd)
			if err != nil {
				return err
			}

			j, err := a.prepare(f.input(cmd, a.cfg.Form), false)
			if err != nil {
				return err
			}

			rows := a.generator.Sweep(cmd.Context(), j.Model, j.System, j.User, sweep)
			return writeRows(cmd.OutOrStdout(), f.jsonOut, j, rows, true)
		},
	}

	f.register(cmd, false)
	cmd.Flags().Float64Var(&pinTemp, "pin-temperature", 0, "Hold temperature at this value")
	cmd.Flags().IntVar(&pinTokens, "pin-max-tokens", 0, "Hold max tokens at this value")
	cmd.Flags().Float64Var(&pinPresence, "pin-presence-penalty", 0, "Hold presence penalty at this value")
	cmd.Flags().Float64Var(&pinFrequency, "pin-frequency-penalty", 0, "Hold frequency penalty at this value")
	cmd.Flags().StringVar(&pinStop, "pin-stop", "", "Comma-separated stop sequences sent with every row")

	return cmd
}

func writeRows(w io.Writer, jsonOut bool, j translator.Job, rows []models.Row, withStop bool) error {
	if jsonOut {
		return writeJSON(w, translator.FromRows(j.Model, j.User, rows))
	}
	_, err := fmt.Fprintf(w, "Prompt: %s\n%s\n", j.User, renderTable(rows, withStop))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
