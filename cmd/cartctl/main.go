// cartctl drives the cart reconciliation engine from the command line. It
// wires the slot store, the session provider, the remote client and the
// engine into one explicit app context; nothing is reachable ambiently.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/cart-sync/internal/auth"
	"github.com/example/cart-sync/internal/catalog"
	"github.com/example/cart-sync/internal/config"
	"github.com/example/cart-sync/internal/domain/cart"
	"github.com/example/cart-sync/internal/infrastructure/remote"
	"github.com/example/cart-sync/internal/infrastructure/store"
	"github.com/example/cart-sync/internal/projection"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries everything a command needs, assembled per invocation.
type app struct {
	cfg    *config.Config
	store  *store.SlotStore
	tokens *auth.Provider
	engine *cart.Engine
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	resolver, err := catalog.NewResolver()
	if err != nil {
		st.Close()
		return nil, err
	}
	tokens := auth.NewProvider(st)
	client := remote.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	return &app{
		cfg:    cfg,
		store:  st,
		tokens: tokens,
		engine: cart.NewEngine(st, client, tokens, resolver),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

// printCart renders the current lines and the recomputed summary.
func (a *app) printCart(out *cobra.Command) {
	lines := a.engine.Lines()
	if len(lines) == 0 {
		out.Println("cart is empty")
		return
	}
	for _, ln := range lines {
		out.Printf("line %d: %d × %s — %s\n",
			ln.LineID, ln.Quantity, ln.Product.Name,
			projection.FormatPrice(float64(ln.Quantity)*ln.Product.Price))
	}
	s := projection.Summarize(lines)
	out.Printf("items: %d, subtotal: %s\n", s.ItemCount, projection.FormatPrice(s.Subtotal))
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Client-side shopping cart with remote reconciliation",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")

	root.AddCommand(
		newLoadCmd(&cfgPath),
		newAddCmd(&cfgPath),
		newUpdateCmd(&cfgPath),
		newRemoveCmd(&cfgPath),
		newClearCmd(&cfgPath),
		newSummaryCmd(&cfgPath),
		newSessionCmd(&cfgPath),
	)
	return root
}

// withApp builds the app, runs fn, and always closes the store.
func withApp(cfgPath *string, fn func(a *app, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(*cfgPath)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(a, cmd)
	}
}

func newLoadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Sync the cart from the remote store (or the local snapshot)",
		RunE: withApp(cfgPath, func(a *app, cmd *cobra.Command) error {
			if _, err := a.engine.Load(cmd.Context()); err != nil {
				return err
			}
			a.printCart(cmd)
			return nil
		}),
	}
}

func newAddCmd(cfgPath *string) *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.engine.Load(c.Context()); err != nil {
				return err
			}
			if err := a.engine.Add(c.Context(), productID, quantity); err != nil {
				if errors.Is(err, cart.ErrAuthRequired) {
					return errors.New("not signed in: store a session first with `cartctl session set`")
				}
				return err
			}
			a.printCart(c)
			return nil
		},
	}
	cmd.Flags().IntVar(&quantity, "quantity", 1, "quantity to add")
	return cmd
}

func newUpdateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "update <line-id> <quantity>",
		Short: "Change the quantity on a cart line (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			lineID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid line id %q", args[0])
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.engine.Load(c.Context()); err != nil {
				return err
			}
			if err := a.engine.UpdateQuantity(c.Context(), lineID, quantity); err != nil {
				return err
			}
			a.printCart(c)
			return nil
		},
	}
}

func newRemoveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			lineID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid line id %q", args[0])
			}
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.engine.Load(c.Context()); err != nil {
				return err
			}
			if err := a.engine.Remove(c.Context(), lineID); err != nil {
				return err
			}
			a.printCart(c)
			return nil
		},
	}
}

func newClearCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: withApp(cfgPath, func(a *app, cmd *cobra.Command) error {
			if _, err := a.engine.Load(cmd.Context()); err != nil {
				return err
			}
			if err := a.engine.Clear(cmd.Context()); err != nil {
				return err
			}
			a.printCart(cmd)
			return nil
		}),
	}
}

func newSummaryCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show item count and subtotal",
		RunE: withApp(cfgPath, func(a *app, cmd *cobra.Command) error {
			lines, err := a.engine.Load(cmd.Context())
			if err != nil {
				return err
			}
			s := projection.Summarize(lines)
			cmd.Printf("items: %d, subtotal: %s\n", s.ItemCount, projection.FormatPrice(s.Subtotal))
			return nil
		}),
	}
}

func newSessionCmd(cfgPath *string) *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored session record",
	}

	var token, email string
	set := &cobra.Command{
		Use:   "set",
		Short: "Store a bearer token issued by the auth service",
		RunE: withApp(cfgPath, func(a *app, cmd *cobra.Command) error {
			if token == "" {
				return errors.New("--token is required")
			}
			data, err := json.Marshal(auth.Session{Token: token, Email: email})
			if err != nil {
				return err
			}
			if err := a.store.Put(cmd.Context(), store.SessionKey, data); err != nil {
				return err
			}
			cmd.Println("session stored")
			return nil
		}),
	}
	set.Flags().StringVar(&token, "token", "", "bearer token")
	set.Flags().StringVar(&email, "email", "", "account email (informational)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored session",
		RunE: withApp(cfgPath, func(a *app, cmd *cobra.Command) error {
			s, err := a.tokens.Session(cmd.Context())
			if errors.Is(err, auth.ErrNoSession) {
				cmd.Println("no session stored")
				return nil
			}
			if err != nil {
				return err
			}
			if _, ok := a.tokens.Token(cmd.Context()); ok {
				cmd.Printf("signed in as %s (token usable)\n", s.Email)
			} else {
				cmd.Printf("session for %s present but token is unusable\n", s.Email)
			}
			return nil
		}),
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored session",
		RunE: withApp(cfgPath, func(a *app, cmd *cobra.Command) error {
			if err := a.store.Delete(cmd.Context(), store.SessionKey); err != nil {
				return err
			}
			cmd.Println("session cleared")
			return nil
		}),
	}

	session.AddCommand(set, show, clear)
	return session
}
