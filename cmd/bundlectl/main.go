// bundlectl computes buy-together bundles offline.
//
// Usage:
//
//	bundlectl price --items items.json --discount 10
//	bundlectl compose --catalog catalog.json --base 10 --index 1 [--all-skus] [--preferred PRICE_ASC]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"buy-together-service/internal/config"
	"buy-together-service/internal/models"
	"buy-together-service/internal/repository"
	"buy-together-service/internal/services"
)

var version = "dev"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "bundlectl",
		Usage:   "Compute buy-together bundles and prices offline",
		Version: version,
		Commands: []*cli.Command{
			priceCommand(),
			composeCommand(),
		},
	}
}

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:  "price",
		Usage: "Aggregate the discounted total of cart items",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "items",
				Aliases:  []string{"i"},
				Usage:    "Path to a JSON array of cart items (prices in cents)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:    "discount",
				Aliases: []string{"d"},
				Value:   7,
				Usage:   "Discount percentage",
			},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.String("items"))
			if err != nil {
				return fmt.Errorf("failed to read items: %w", err)
			}

			var items []models.CartItem
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("failed to parse items: %w", err)
			}

			discount := models.ClampDiscount(c.Float64("discount"), config.MaxDiscountPercentage)
			total := services.AggregatePrice(items, discount)
			fmt.Fprintln(c.App.Writer, total.StringFixed(services.PriceScale))
			return nil
		},
	}
}

func composeCommand() *cli.Command {
	return &cli.Command{
		Name:  "compose",
		Usage: "Build the bundle of a product from an offline catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "catalog",
				Aliases:  []string{"c"},
				Usage:    "Path to catalog JSON (products, crossSelling, groupItems)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "base",
				Aliases:  []string{"b"},
				Usage:    "Base product id",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "index",
				Usage: "Active carousel index",
			},
			&cli.BoolFlag{
				Name:  "all-skus",
				Usage: "Show every SKU as its own candidate",
			},
			&cli.StringFlag{
				Name:  "preferred",
				Value: string(models.PreferenceFirstAvailable),
				Usage: "Preferred SKU (FIRST_AVAILABLE, LAST_AVAILABLE, PRICE_ASC, PRICE_DESC)",
			},
			&cli.Float64Flag{
				Name:    "discount",
				Aliases: []string{"d"},
				Value:   7,
				Usage:   "Discount percentage",
			},
			&cli.BoolFlag{
				Name:  "no-base",
				Usage: "Leave the base product out of the cart",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: func(c *cli.Context) error {
			catalog, err := loadCatalog(c.String("catalog"))
			if err != nil {
				return err
			}

			preferred := models.PreferenceType(strings.ToUpper(c.String("preferred")))
			if !preferred.IsValid() {
				return fmt.Errorf("unknown preferred SKU %q", c.String("preferred"))
			}

			logger := logrus.New()
			logger.SetOutput(io.Discard)

			service := services.NewBundleService(catalog, repository.NewMemoryGroupRepository(), services.BundleServiceConfig{
				Defaults: models.BundleConfig{
					DiscountPercentage: 7,
					CustomText:         "PIX",
					ShowCustomText:     true,
					PreferredSku:       models.PreferenceFirstAvailable,
					IncludeBaseProduct: true,
				},
				MaxDiscount: config.MaxDiscountPercentage,
			}, logger)

			discount := c.Float64("discount")
			showAll := c.Bool("all-skus")
			includeBase := !c.Bool("no-base")
			state, err := service.Quote(context.Background(), "", services.QuoteRequest{
				ProductID:   c.String("base"),
				ActiveIndex: c.Int("index"),
				GroupItems:  catalog.file.GroupItems,
				Config: models.BundleConfigOverrides{
					DiscountPercentage: &discount,
					ShowAllSkus:        &showAll,
					PreferredSku:       &preferred,
					IncludeBaseProduct: &includeBase,
				},
			})
			if err != nil {
				return err
			}

			if c.String("format") == "json" {
				encoder := json.NewEncoder(c.App.Writer)
				encoder.SetIndent("", "  ")
				return encoder.Encode(state)
			}
			return printState(c.App.Writer, state)
		},
	}
}

func printState(out io.Writer, state *models.BundleState) error {
	if state.Suppressed {
		fmt.Fprintln(out, "No bundle: the product has no cross-sell candidates")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tSKU\tPRICE\t")
	for i, candidate := range state.Candidates {
		marker := ""
		if i == state.ActiveIndex {
			marker = "*"
		}
		sku, price := "-", "-"
		if candidate.Sku != nil {
			sku = candidate.Sku.ItemID
			price = services.DiscountedContribution(candidate.Sku.SellingPrice, 0).StringFixed(services.PriceScale)
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t\n", i, marker, candidate.ProductName, sku, price)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Cart:")
	for _, item := range state.CartItems {
		fmt.Fprintf(out, "  %s x%d seller %s (%s)\n", item.ID, item.Quantity, item.Seller, item.Name)
	}
	fmt.Fprintf(out, "Total: %s (%.0f%% off)\n", state.DisplayPrice.StringFixed(services.PriceScale), state.DiscountPercentage)
	if state.ShowCustomText && state.CustomText != "" {
		fmt.Fprintf(out, "Label: %s\n", state.CustomText)
	}
	return nil
}
