package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/and161185/grocery-keeper/internal/app"
	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/validate"
)

func readAll(p string, stdin io.Reader) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

// productFile is the JSON shape accepted by "products add --file".
type productFile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
}

func parseProductFile(b []byte) (model.NewProduct, error) {
	var f productFile
	if err := json.Unmarshal(b, &f); err != nil {
		return model.NewProduct{}, fmt.Errorf("product file: %w", err)
	}
	return model.NewProduct(f), nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errs.Validation("Price must be a number")
	}
	return d, nil
}

var productFlags = []cli.Flag{
	&cli.StringFlag{Name: "name"},
	&cli.StringFlag{Name: "description"},
	&cli.StringFlag{Name: "price"},
	&cli.StringFlag{Name: "image-url"},
	&cli.StringFlag{Name: "category"},
	&cli.IntFlag{Name: "quantity"},
}

func newProductFromFlags(c *cli.Context) (model.NewProduct, error) {
	if f := c.String("file"); f != "" {
		b, err := readAll(f, os.Stdin)
		if err != nil {
			return model.NewProduct{}, err
		}
		return parseProductFile(b)
	}
	np := model.NewProduct{
		Name:        c.String("name"),
		Description: c.String("description"),
		ImageURL:    optional(c, "image-url"),
		Category:    c.String("category"),
		Quantity:    c.Int("quantity"),
	}
	price, err := parsePrice(c.String("price"))
	if err != nil {
		if verr := validate.AddProductBeforePrice(np); verr != nil {
			return model.NewProduct{}, verr
		}
		return model.NewProduct{}, err
	}
	np.Price = price
	return np, nil
}

func patchFromFlags(c *cli.Context) (model.ProductPatch, error) {
	p := model.ProductPatch{
		Name:        optional(c, "name"),
		Description: optional(c, "description"),
		ImageURL:    optional(c, "image-url"),
		Category:    optional(c, "category"),
	}
	if c.IsSet("price") {
		d, err := parsePrice(c.String("price"))
		if err != nil {
			if verr := validate.UpdateProductBeforePrice(c.Args().First(), p); verr != nil {
				return p, verr
			}
			return p, err
		}
		p.Price = &d
	}
	if c.IsSet("quantity") {
		q := c.Int("quantity")
		p.Quantity = &q
	}
	return p, nil
}

func productCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "products",
			Usage: "browse and edit the catalog",
			Subcommands: []*cli.Command{
				{
					Name:  "list",
					Usage: "list all products",
					Action: withApp(func(c *cli.Context, a *app.App) error {
						ps, err := a.Products.List(c.Context)
						if err != nil {
							return err
						}
						return printJSON(c.App.Writer, ps)
					}),
				},
				{
					Name:      "get",
					Usage:     "show one product",
					ArgsUsage: "ID",
					Action: withApp(func(c *cli.Context, a *app.App) error {
						p, err := a.Products.Get(c.Context, c.Args().First())
						if err != nil {
							return err
						}
						return printJSON(c.App.Writer, p)
					}),
				},
				{
					Name:  "add",
					Usage: "create a product from flags or a JSON file (- for stdin)",
					Flags: append([]cli.Flag{&cli.StringFlag{Name: "file"}}, productFlags...),
					Action: withApp(func(c *cli.Context, a *app.App) error {
						np, err := newProductFromFlags(c)
						if err != nil {
							return err
						}
						p, err := a.Products.Add(c.Context, np)
						if err != nil {
							return err
						}
						return printJSON(c.App.Writer, p)
					}),
				},
				{
					Name:      "update",
					Usage:     "change product fields; only the given flags are sent",
					ArgsUsage: "ID",
					Flags:     productFlags,
					Action: withApp(func(c *cli.Context, a *app.App) error {
						patch, err := patchFromFlags(c)
						if err != nil {
							return err
						}
						p, err := a.Products.Update(c.Context, c.Args().First(), patch)
						if err != nil {
							return err
						}
						return printJSON(c.App.Writer, p)
					}),
				},
				{
					Name:      "rm",
					Usage:     "delete a product",
					ArgsUsage: "ID",
					Action: withApp(func(c *cli.Context, a *app.App) error {
						id := c.Args().First()
						if err := a.Products.Delete(c.Context, id); err != nil {
							return err
						}
						return printJSON(c.App.Writer, map[string]string{"deleted": id})
					}),
				},
			},
		},
		{
			Name:  "catalog",
			Usage: "featured products and products by category",
			Action: withApp(func(c *cli.Context, a *app.App) error {
				cat, err := a.Products.Catalog(c.Context)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, cat)
			}),
		},
	}
}
