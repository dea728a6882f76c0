package cli

import (
	"fmt"
	"os"

	"github.com/sewing848/decayd/internal/amount"
	"github.com/sewing848/decayd/internal/engine"
	"github.com/sewing848/decayd/internal/events"
	"github.com/sewing848/decayd/internal/ledger"
	"github.com/sewing848/decayd/internal/store"
	"github.com/spf13/cobra"
)

// openEngine is a helper that opens the database and loads the ledgers for
// CLI commands.
func openEngine() (*engine.Engine, error) {
	dbPath := os.Getenv("DECAYD_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	eng := engine.New(db, events.Nop{})
	if err := eng.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load ledgers: %w", err)
	}
	return eng, nil
}

// --- init command ---

var (
	initName   string
	initSymbol string
	initRate   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new ledger",
	Long:  "Create a new ledger with a fixed decay rate, given in tokens per second.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "Ledger display name")
	initCmd.Flags().StringVar(&initSymbol, "symbol", "", "Ticker symbol")
	initCmd.Flags().StringVar(&initRate, "rate", "", "Decay rate in tokens per second")
	initCmd.MarkFlagRequired("name")
	initCmd.MarkFlagRequired("symbol")
	initCmd.MarkFlagRequired("rate")
}

func runInit(cmd *cobra.Command, args []string) error {
	rate, err := amount.Parse(initRate)
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.DB.Close()

	info, err := eng.CreateLedger(initName, initSymbol, rate)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}

	fmt.Printf("created %s (%s)\n", info.Name, info.Symbol)
	fmt.Printf("  id:      %s\n", info.ID)
	fmt.Printf("  rate:    %s %s/s\n", amount.Format(info.DecayRate), info.Symbol)
	fmt.Printf("  address: %s\n", info.SelfAddr)
	return nil
}

// --- ledgers command ---

var ledgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "List ledgers",
	RunE:  runLedgers,
}

func runLedgers(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.DB.Close()

	infos, err := eng.List()
	if err != nil {
		return fmt.Errorf("list ledgers: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No ledgers. Create one with `decayd init`.")
		return nil
	}

	for _, info := range infos {
		fmt.Printf("%s  %s (%s)\n", info.ID, info.Name, info.Symbol)
		fmt.Printf("  rate: %s/s  supply: %s\n",
			amount.Format(info.DecayRate), amount.Format(info.TotalRaw))
	}
	return nil
}

// --- balance command ---

var balanceCmd = &cobra.Command{
	Use:   "balance <ledger-id> <holder>",
	Short: "Show a holder's live decayed balance",
	Args:  cobra.ExactArgs(2),
	RunE:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	holder, err := ledger.ParseAddress(args[1])
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.DB.Close()

	units, err := eng.Balance(args[0], holder)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", amount.Format(units))
	return nil
}

// --- transfer command ---

var transferCmd = &cobra.Command{
	Use:   "transfer <ledger-id> <from> <to> <amount>",
	Short: "Move tokens between holders",
	Args:  cobra.ExactArgs(4),
	RunE:  runTransfer,
}

func runTransfer(cmd *cobra.Command, args []string) error {
	from, err := ledger.ParseAddress(args[1])
	if err != nil {
		return err
	}
	to, err := ledger.ParseAddress(args[2])
	if err != nil {
		return err
	}
	units, err := amount.Parse(args[3])
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.DB.Close()

	mv, err := eng.Transfer(args[0], from, to, units)
	if err != nil {
		return err
	}
	fmt.Printf("moved %s from %s to %s at t=%d\n",
		amount.Format(mv.Amount), mv.From, mv.To, mv.OccurredAt)
	return nil
}

// --- mint command ---

var mintCmd = &cobra.Command{
	Use:   "mint <ledger-id> <to> <amount>",
	Short: "Create new tokens for a holder",
	Args:  cobra.ExactArgs(3),
	RunE:  runMint,
}

func runMint(cmd *cobra.Command, args []string) error {
	to, err := ledger.ParseAddress(args[1])
	if err != nil {
		return err
	}
	units, err := amount.Parse(args[2])
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.DB.Close()

	mv, err := eng.Mint(args[0], to, units)
	if err != nil {
		return err
	}
	fmt.Printf("minted %s to %s at t=%d\n", amount.Format(mv.Amount), mv.To, mv.OccurredAt)
	return nil
}
