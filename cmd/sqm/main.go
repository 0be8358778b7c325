package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	cl "squadmarket/internal/cli"
	"squadmarket/internal/config"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
)

var stdinReader = bufio.NewReader(os.Stdin)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "sqm",
		Short:        "Squadmarket fantasy football client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newTeamCmd(&apiBase),
		newMarketCmd(&apiBase),
		newListCmd(&apiBase),
		newDelistCmd(&apiBase),
		newBuyCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		danger.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in (registers automatically on first use)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			fmt.Print("Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return err
			}

			out, err := newClient(apiBase).Login(context.Background(), email, string(raw))
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Token: out.Token, Email: out.User.Email}); err != nil {
				return err
			}
			success.Println(out.Message)
			if out.IsNewUser {
				fmt.Println("Check `sqm team` in a moment to see your squad.")
			}
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			success.Println("Logged out.")
			return nil
		},
	}
}

func newTeamCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "team",
		Short: "Show your team and roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			out, err := newClient(apiBase).TeamStatus(context.Background(), session.Token)
			if err != nil {
				return err
			}
			if !out.TeamCreated {
				fmt.Println(out.Message)
				return nil
			}

			accent.Printf("%s\n", out.Team.Name)
			fmt.Printf("Budget: %d  Players: %d\n\n", out.Team.Budget, out.Team.PlayersCount)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPOSITION\tASKING PRICE")
			for _, p := range out.Players {
				price := "-"
				if p.AskingPrice != nil {
					price = strconv.FormatInt(*p.AskingPrice, 10)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Position, price)
			}
			return w.Flush()
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var q cl.MarketQuery
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Browse the transfer market",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Browsing works logged out too; own listings are hidden
			// when a session exists.
			token := ""
			if session, err := cl.LoadSession(); err == nil {
				token = session.Token
			}

			out, err := newClient(apiBase).Market(context.Background(), token, q)
			if err != nil {
				return err
			}
			if len(out.Players) == 0 {
				fmt.Println("No players on the market.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPOSITION\tASKING PRICE\tTEAM")
			for _, l := range out.Players {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", l.PlayerID, l.Name, l.Position, l.AskingPrice, l.TeamName)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&q.Position, "position", "", "filter by position (GOALKEEPER/DEFENDER/MIDFIELDER/ATTACKER)")
	cmd.Flags().StringVar(&q.PlayerName, "player-name", "", "filter by player name substring")
	cmd.Flags().StringVar(&q.TeamName, "team-name", "", "filter by team name substring")
	cmd.Flags().Int64Var(&q.MinPrice, "min-price", 0, "minimum asking price")
	cmd.Flags().Int64Var(&q.MaxPrice, "max-price", 0, "maximum asking price")
	return cmd
}

func newListCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <player-id> <asking-price>",
		Short: "Put one of your players on the market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			askingPrice, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || askingPrice <= 0 {
				return fmt.Errorf("asking price must be a positive integer")
			}
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			out, err := newClient(apiBase).ListPlayer(context.Background(), session.Token, playerID, askingPrice)
			if err != nil {
				return err
			}
			success.Println(out["message"])
			return nil
		},
	}
}

func newDelistCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delist <player-id>",
		Short: "Take one of your players off the market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			out, err := newClient(apiBase).DelistPlayer(context.Background(), session.Token, playerID)
			if err != nil {
				return err
			}
			success.Println(out["message"])
			return nil
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <player-id>",
		Short: "Buy a listed player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			out, err := newClient(apiBase).BuyPlayer(context.Background(), session.Token, playerID)
			if err != nil {
				return err
			}
			success.Printf("%s %s (%s) for %d\n", out.Message, out.Player.Name, out.Player.Position, out.PurchasePrice)
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("player id must be a positive integer")
	}
	return id, nil
}

func promptRequired(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}
