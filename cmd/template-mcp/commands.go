package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/compositor"
	"github.com/ironsheep/template-tools-mcp/internal/decompose"
	"github.com/ironsheep/template-tools-mcp/internal/palette"
	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/template"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var paletteSteps int

var paletteCmd = &cobra.Command{
	Use:   "palette <brand-hex>",
	Short: "Print the accessible palette, harmonies and variations of a brand color",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, err := colorspace.ParseHex(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"palette":    palette.GenerateAccessiblePalette(brand),
			"harmony":    palette.GenerateComplementary(brand),
			"variations": palette.CreateVariations(brand, paletteSteps),
		})
	},
}

// loadTemplate decomposes a document file into an unpublished template.
func loadTemplate(path string) (*template.Template, []string, error) {
	doc, err := decompose.DecodeFile(path, limits())
	if err != nil {
		return nil, nil, err
	}
	res, err := decompose.FromDocument(doc, decompose.Options{Limits: limits(), Logger: log})
	if err != nil {
		return nil, nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tpl, err := template.New(name, res.Tree, param.Options{})
	if err != nil {
		return nil, nil, err
	}
	return tpl, res.Warnings, nil
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose <document>",
	Short: "Decompose a JSON or YAML layer document and print its parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, warnings, err := loadTemplate(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"name":       tpl.Name,
			"width":      tpl.Tree.Width,
			"height":     tpl.Tree.Height,
			"zones":      len(tpl.Tree.Zones()),
			"parameters": tpl.Parameters,
			"warnings":   warnings,
		})
	},
}

var (
	renderValues string
	renderBrand  string
	renderOut    string
)

// readValues reads a JSON or YAML map of parameter id to value. Color
// parameters written as bare digits (552583) keep their source text; an
// unquoted "#552583" is a YAML comment and is reported as such.
func readValues(path string, params []param.Parameter) (map[string]any, error) {
	raw := map[string]any{}
	if path == "" {
		return raw, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nodes map[string]yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for id, n := range nodes {
		if p, ok := param.Find(params, id); ok && p.Type == zone.TypeColor && n.Kind == yaml.ScalarNode {
			switch n.ShortTag() {
			case "!!null":
				return nil, fmt.Errorf("%s: %s has no value; quote hex colors, an unquoted # starts a comment", path, id)
			case "!!int", "!!float":
				raw[id] = n.Value
				continue
			}
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("parse %s: %s: %w", path, id, err)
		}
		raw[id] = v
	}
	return raw, nil
}

var renderCmd = &cobra.Command{
	Use:   "render <document>",
	Short: "Render a layer document with parameter values to a PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, _, err := loadTemplate(args[0])
		if err != nil {
			return err
		}

		values := param.Values{}
		if renderBrand != "" {
			brand, err := colorspace.ParseHex(renderBrand)
			if err != nil {
				return fmt.Errorf("brand: %w", err)
			}
			bv, err := param.BrandValues(palette.GenerateAccessiblePalette(brand))
			if err != nil {
				return err
			}
			maps.Copy(values, bv)
		}
		raw, err := readValues(renderValues, tpl.Parameters)
		if err != nil {
			return err
		}
		explicit, err := param.Resolve(tpl.Parameters, raw)
		if err != nil {
			return err
		}
		maps.Copy(values, explicit)

		comp := compositor.New(compositor.Options{
			Assets:          assetCache(),
			MaxCanvasPixels: cfg.MaxCanvasPixels,
			Logger:          log,
		})
		r, err := comp.Render(cmd.Context(), tpl.Tree, tpl.Parameters, values)
		if err != nil {
			return err
		}
		if err := os.WriteFile(renderOut, r.PNG, 0o644); err != nil {
			return err
		}
		log.Info().Str("out", renderOut).Dur("elapsed", r.Duration).Int("warnings", len(r.Warnings)).Msg("rendered")
		return printJSON(cmd, map[string]any{
			"out":      renderOut,
			"scene":    r.Scene,
			"warnings": r.Warnings,
		})
	},
}

func init() {
	paletteCmd.Flags().IntVar(&paletteSteps, "steps", 3, "lightness variations on each side")

	renderCmd.Flags().StringVar(&renderValues, "values", "", "JSON or YAML file of parameter values")
	renderCmd.Flags().StringVar(&renderBrand, "brand", "", "brand color expanded to the team palette")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "out.png", "output PNG path")
}
