package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamscao/certledger/internal/issuers"
	"github.com/adamscao/certledger/internal/models"
	"github.com/adamscao/certledger/pkg/ethutil"
)

var issuersCmd = &cobra.Command{
	Use:   "issuers",
	Short: "Manage registered issuers",
}

var issuersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending and approved issuers",
	Args:  cobra.NoArgs,
	RunE:  listIssuers,
}

var issuersApproveCmd = &cobra.Command{
	Use:   "approve <address>",
	Short: "Approve a pending issuer",
	Args:  cobra.ExactArgs(1),
	RunE:  approveIssuer,
}

var issuersRemoveCmd = &cobra.Command{
	Use:   "remove <address>",
	Short: "Remove an issuer",
	Args:  cobra.ExactArgs(1),
	RunE:  removeIssuer,
}

func init() {
	issuersCmd.AddCommand(issuersListCmd)
	issuersCmd.AddCommand(issuersApproveCmd)
	issuersCmd.AddCommand(issuersRemoveCmd)
}

var cliCaller = issuers.Caller{Actor: "certadmin", ClientIP: "local"}

func listIssuers(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	listing, err := s.svcs.Issuers.List(ctx)
	if err != nil {
		return err
	}

	printIssuers("Pending issuers", listing.Pending)
	printIssuers("Approved issuers", listing.Approved)
	return nil
}

func printIssuers(title string, list []models.Issuer) {
	fmt.Printf("\n%s: %d\n", title, len(list))
	if len(list) == 0 {
		return
	}

	fmt.Printf("%-44s %-24s %-30s %s\n", "Wallet", "Name", "Institution", "Deposit (ETH)")
	fmt.Println("----------------------------------------------------------------------------------------------------------------")
	for _, is := range list {
		fmt.Printf("%-44s %-24s %-30s %s\n",
			is.Wallet.Hex(),
			is.Name,
			is.Institution,
			ethutil.FormatEther(is.Deposit),
		)
	}
}

func approveIssuer(cmd *cobra.Command, args []string) error {
	addr, err := ethutil.ParseAddress(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	tx, err := s.svcs.Issuers.Approve(ctx, cliCaller, addr)
	if err != nil {
		return err
	}

	fmt.Printf("Issuer %s approved (tx %s)\n", addr.Hex(), tx.Hex())
	return nil
}

func removeIssuer(cmd *cobra.Command, args []string) error {
	addr, err := ethutil.ParseAddress(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	tx, err := s.svcs.Issuers.Remove(ctx, cliCaller, addr)
	if err != nil {
		return err
	}

	fmt.Printf("Issuer %s removed (tx %s)\n", addr.Hex(), tx.Hex())
	return nil
}
