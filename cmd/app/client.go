package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/openpecha/catalog/internal/client"
	"github.com/openpecha/catalog/internal/workflow"
)

func newClient(cmd *cli.Command) (*client.Client, error) {
	var opts []client.Option
	if token := cmd.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(cmd.String("server"), opts...)
}

// withClient adapts a client action to a cli action.
func withClient(fn func(ctx context.Context, cmd *cli.Command, c *client.Client) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, c)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func intOpt(cmd *cli.Command, name string) (int, error) {
	s := cmd.String(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("--%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}

func requireArg(cmd *cli.Command, what string) (string, error) {
	if cmd.Args().Len() < 1 || cmd.Args().First() == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return cmd.Args().First(), nil
}

func pageFlags(filters ...string) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "limit", Usage: "Page size"},
		&cli.StringFlag{Name: "offset", Usage: "Number of results to skip"},
	}
	for _, f := range filters {
		flags = append(flags, &cli.StringFlag{Name: f, Usage: "Filter by " + f})
	}
	return flags
}

func textCommand() *cli.Command {
	return &cli.Command{
		Name:  "text",
		Usage: "Read texts through the gateway",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a page of texts",
				Flags: pageFlags("language", "author"),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					limit, err := intOpt(cmd, "limit")
					if err != nil {
						return err
					}
					offset, err := intOpt(cmd, "offset")
					if err != nil {
						return err
					}
					page, err := c.Texts(ctx, client.TextQuery{
						Limit: limit, Offset: offset,
						Language: cmd.String("language"), Author: cmd.String("author"),
					})
					if err != nil {
						return err
					}
					return printJSON(page)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one text",
				ArgsUsage: "<text-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := requireArg(cmd, "text id")
					if err != nil {
						return err
					}
					text, err := c.Text(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(text)
				}),
			},
			{
				Name:      "instances",
				Usage:     "List the instances of a text",
				ArgsUsage: "<text-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := requireArg(cmd, "text id")
					if err != nil {
						return err
					}
					list, err := c.TextInstances(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(list)
				}),
			},
		},
	}
}

func instanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "instance",
		Usage: "Read instances through the gateway",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show one instance",
				ArgsUsage: "<instance-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := requireArg(cmd, "instance id")
					if err != nil {
						return err
					}
					inst, err := c.Instance(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(inst)
				}),
			},
		},
	}
}

func personCommand() *cli.Command {
	return &cli.Command{
		Name:  "person",
		Usage: "Read and create persons through the gateway",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a page of persons",
				Flags: pageFlags("nationality", "occupation"),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					limit, err := intOpt(cmd, "limit")
					if err != nil {
						return err
					}
					offset, err := intOpt(cmd, "offset")
					if err != nil {
						return err
					}
					page, err := c.Persons(ctx, client.PersonQuery{
						Limit: limit, Offset: offset,
						Nationality: cmd.String("nationality"), Occupation: cmd.String("occupation"),
					})
					if err != nil {
						return err
					}
					return printJSON(page)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one person",
				ArgsUsage: "<person-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					id, err := requireArg(cmd, "person id")
					if err != nil {
						return err
					}
					p, err := c.Person(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(p)
				}),
			},
			{
				Name:  "create",
				Usage: "Create a person",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name-en", Usage: "English name"},
					&cli.StringFlag{Name: "name-bo", Usage: "Tibetan name"},
					&cli.StringFlag{Name: "bdrc", Usage: "BDRC identifier"},
					&cli.StringFlag{Name: "wiki", Usage: "Wiki URL"},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
					form := workflow.PersonForm{
						NameEN: cmd.String("name-en"),
						NameBO: cmd.String("name-bo"),
						BDRC:   cmd.String("bdrc"),
						Wiki:   cmd.String("wiki"),
					}
					if err := form.Validate(); err != nil {
						return err
					}
					p, err := c.CreatePerson(ctx, form.Payload())
					if err != nil {
						return err
					}
					return printJSON(p)
				}),
			},
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search texts and persons the gateway has indexed",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "Restrict to text or person"},
		},
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			q, err := requireArg(cmd, "query")
			if err != nil {
				return err
			}
			hits, err := c.Search(ctx, q, cmd.String("kind"))
			if err != nil {
				return err
			}
			return printJSON(hits)
		}),
	}
}

// publishResult is printed by publish, including on partial failure.
type publishResult struct {
	workflow.Result
	Error string `json:"error,omitempty"`
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Create an instance, first creating its text when --text is given",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text-id", Usage: "Existing text to attach the instance to"},
			&cli.StringFlag{Name: "text", Usage: "JSON file with a new text form"},
			&cli.StringFlag{Name: "instance", Usage: "JSON file with the instance form"},
		},
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			req := workflow.CreateRequest{TextID: cmd.String("text-id")}
			if path := cmd.String("text"); path != "" {
				req.NewText = &workflow.TextForm{}
				if err := readJSON(path, req.NewText); err != nil {
					return err
				}
			}
			if path := cmd.String("instance"); path != "" {
				req.Instance = workflow.NewInstanceForm()
				if err := readJSON(path, req.Instance); err != nil {
					return err
				}
			}

			res, err := workflow.Create(ctx, c, req)
			out := publishResult{Result: res}
			if err != nil {
				out.Error = err.Error()
			}
			if res.TextID != "" {
				if perr := printJSON(out); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
