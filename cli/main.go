package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"

	cli "github.com/urfave/cli/v2"

	styx "github.com/underlay/styx-client"
	rpc "github.com/underlay/styx-client/rpc"
	server "github.com/underlay/styx-client/server"
	types "github.com/underlay/styx-client/types"
)

const (
	formatJSON   = "application/json"
	formatJSONLD = "application/ld+json"
	formatNQuads = "application/n-quads"
)

func main() {
	app := &cli.App{
		Name:                 "styx",
		Usage:                "store, fetch and query graphs on a styx server",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost:8086",
				Usage:   "host[:port] of the server",
				EnvVars: []string{"STYX_HOST"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print a graph",
				UsageText: "get --format [format] [id]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: formatNQuads,
						Usage: "application/n-quads, application/ld+json, or application/json",
					},
				},
				Action: func(c *cli.Context) error {
					client := newClient(c)
					id := c.Args().First()
					switch c.String("format") {
					case formatJSONLD:
						doc, err := client.GetJSONLD(c.Context, &types.ID{ID: id})
						if err != nil {
							return err
						}
						return printJSON(doc)
					case formatJSON, formatNQuads:
						quads, err := client.Get(c.Context, parseTarget(id))
						if err != nil {
							return err
						} else if c.String("format") == formatJSON {
							return printJSON(types.QuadsToWire(quads))
						}
						for _, q := range quads {
							fmt.Println(q.String())
						}
						return nil
					}
					return fmt.Errorf("unsupported format %s", c.String("format"))
				},
			},
			{
				Name:      "put",
				Usage:     "replace a graph with the contents of a file",
				UsageText: "put --format [format] [file] [id]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: formatNQuads,
						Usage: "application/n-quads, application/ld+json, or application/json",
					},
				},
				Action: func(c *cli.Context) error {
					path, id := c.Args().Get(0), c.Args().Get(1)
					if path == "" {
						return errors.New("File path required")
					}

					data, err := ioutil.ReadFile(path)
					if err != nil {
						return err
					}

					client := newClient(c)
					switch c.String("format") {
					case formatJSONLD:
						var doc interface{}
						if err := json.Unmarshal(data, &doc); err != nil {
							return err
						}
						return client.SetJSONLD(c.Context, &types.ID{ID: id}, doc)
					case formatJSON:
						var wire []types.WireQuad
						if err := json.Unmarshal(data, &wire); err != nil {
							return err
						}
						quads, err := types.QuadsFromWire(wire)
						if err != nil {
							return err
						}
						return client.Set(c.Context, parseTarget(id), quads)
					case formatNQuads:
						quads, err := parseQuads(string(data))
						if err != nil {
							return err
						}
						return client.Set(c.Context, parseTarget(id), quads)
					}
					return fmt.Errorf("unsupported format %s", c.String("format"))
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a graph",
				UsageText: "delete [id]",
				Action: func(c *cli.Context) error {
					return newClient(c).DeleteJSONLD(c.Context, &types.ID{ID: c.Args().First()})
				},
			},
			{
				Name:      "query",
				Usage:     "query the server interactively",
				UsageText: "query [pattern]",
				Description: "The pattern is one N-Quads line per quad, with variables written ?name.\n" +
					"Each empty line on stdin advances to the next result; a variable advances\n" +
					"past every result that shares its current binding.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tcp",
						Usage: "speak the query protocol over a raw TCP socket at this address",
					},
				},
				Action: func(c *cli.Context) error {
					pattern, err := parseQuads(c.Args().First())
					if err != nil {
						return err
					} else if len(pattern) == 0 {
						return errors.New("Empty query")
					}

					cursor, err := newClient(c).Query(c.Context, pattern, nil, nil)
					if err != nil {
						return err
					}
					defer cursor.Close()

					domain := cursor.Keys()
					names := make([]string, len(domain))
					for i, term := range domain {
						names[i] = term.String()
					}
					fmt.Println(strings.Join(names, "\t"))

					reader := bufio.NewReader(os.Stdin)
					for !cursor.Done() {
						text, err := reader.ReadString('\n')
						if err != nil {
							return nil
						}

						var delta map[types.Term]types.Term
						if text = strings.TrimSpace(text); text == "" {
							delta, err = cursor.Next(c.Context)
						} else {
							var node types.Term
							if node, err = types.ParseTerm(text); err != nil {
								return err
							}
							delta, err = cursor.NextFrom(c.Context, node)
						}

						if err != nil {
							return err
						} else if delta == nil {
							break
						}

						values := make([]string, len(domain))
						for i, term := range domain {
							if value, has := delta[term]; has {
								values[i] = value.String()
							}
						}
						fmt.Println(strings.Join(values, "\t"))
					}
					return nil
				},
			},
			{
				Name:  "serve",
				Usage: "run an in-memory reference server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Value:   ":8086",
						Usage:   "HTTP listen address",
						EnvVars: []string{"STYX_ADDR"},
					},
					&cli.StringFlag{
						Name:    "path",
						Usage:   "badger directory; empty keeps everything in memory",
						EnvVars: []string{"STYX_PATH"},
					},
					&cli.StringFlag{
						Name:  "tcp",
						Usage: "also accept raw TCP query sockets at this address",
					},
				},
				Action: func(c *cli.Context) error {
					logger := newLogger(c)
					store, err := server.OpenStore(c.String("path"), logger)
					if err != nil {
						return err
					}
					defer store.Close()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
					defer stop()

					s := server.New(store, server.WithLogger(logger))
					if addr := c.String("tcp"); addr != "" {
						ln, err := net.Listen("tcp", addr)
						if err != nil {
							return err
						}
						go s.ServeTCP(ctx, ln)
					}

					srv := &http.Server{Addr: c.String("addr"), Handler: s.Handler()}
					go func() {
						<-ctx.Done()
						srv.Close()
					}()

					logger.Info("listening", "addr", srv.Addr)
					if err := srv.ListenAndServe(); err != http.ErrServerClosed {
						return err
					}
					return nil
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newClient(c *cli.Context) *styx.Client {
	opts := []styx.Option{styx.WithLogger(newLogger(c))}
	if addr := c.String("tcp"); addr != "" {
		opts = append(opts, styx.WithDialer(func(ctx context.Context, host string) (rpc.Transport, error) {
			var dialer net.Dialer
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, &rpc.TransportError{Op: "dial", Err: err}
			}
			return rpc.NewStreamTransport(conn), nil
		}))
	}
	return styx.NewClient(c.String("host"), opts...)
}

func parseTarget(id string) types.Term {
	if id == "" {
		return types.Default
	}
	return types.NewResource(id)
}

func parseQuads(text string) ([]types.Quad, error) {
	quads := []types.Quad{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := types.ParseQuad(line)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
