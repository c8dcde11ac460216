package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamscao/certledger/internal/db/repository"
	"github.com/adamscao/certledger/internal/models"
)

var (
	listLimit   int
	listIssuer  string
	auditActor  string
	auditAction string
	auditSince  time.Duration
	auditBefore time.Duration
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Read certificates issued by this service",
}

var certsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded issuances, newest first",
	Args:  cobra.NoArgs,
	RunE:  listCerts,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, newest first",
	Args:  cobra.NoArgs,
	RunE:  listAudit,
}

var auditFailedLoginsCmd = &cobra.Command{
	Use:   "failed-logins",
	Short: "List failed admin logins",
	Args:  cobra.NoArgs,
	RunE:  listFailedLogins,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count audit entries per action",
	Args:  cobra.NoArgs,
	RunE:  auditStats,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old audit entries",
	Args:  cobra.NoArgs,
	RunE:  pruneAudit,
}

func init() {
	certsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum entries")
	certsListCmd.Flags().StringVar(&listIssuer, "issuer", "", "Only issuances signed by this address")
	certsCmd.AddCommand(certsListCmd)

	auditListCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum entries")
	auditListCmd.Flags().StringVar(&auditActor, "actor", "", "Filter by actor")
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action")

	auditFailedLoginsCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum entries")
	auditFailedLoginsCmd.Flags().DurationVar(&auditSince, "since", 24*time.Hour, "Look back this far")

	auditStatsCmd.Flags().DurationVar(&auditSince, "since", 24*time.Hour, "Look back this far")

	auditPruneCmd.Flags().DurationVar(&auditBefore, "older-than", 90*24*time.Hour, "Delete entries older than this")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditFailedLoginsCmd)
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditPruneCmd)
}

func listCerts(cmd *cobra.Command, args []string) error {
	database, err := initDB()
	if err != nil {
		return err
	}
	defer database.Close()

	certRepo := repository.NewCertRepository(database.DB)

	var recs []*models.IssuanceRecord
	if listIssuer != "" {
		recs, err = certRepo.ListByIssuer(listIssuer, listLimit)
	} else {
		recs, err = certRepo.List(listLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to list certificates: %w", err)
	}

	if len(recs) == 0 {
		fmt.Println("No certificates found")
		return nil
	}

	fmt.Printf("\nTotal certificates: %d\n\n", len(recs))
	fmt.Printf("%-68s %-20s %-24s %-14s %s\n", "Hash", "Recipient", "Course", "Mode", "Issued")
	fmt.Println("--------------------------------------------------------------------------------------------------------------------------------------------------")

	for _, r := range recs {
		fmt.Printf("%-68s %-20s %-24s %-14s %s\n",
			r.Hash,
			r.RecipientName,
			r.CourseName,
			r.HashMode,
			r.IssuedAt.Format("2006-01-02 15:04:05"),
		)
	}

	return nil
}

func listAudit(cmd *cobra.Command, args []string) error {
	database, err := initDB()
	if err != nil {
		return err
	}
	defer database.Close()

	logs, err := repository.NewAuditRepository(database.DB).List(auditActor, auditAction, listLimit)
	if err != nil {
		return fmt.Errorf("failed to list audit logs: %w", err)
	}

	printAudit(logs)
	return nil
}

func listFailedLogins(cmd *cobra.Command, args []string) error {
	database, err := initDB()
	if err != nil {
		return err
	}
	defer database.Close()

	logs, err := repository.NewAuditRepository(database.DB).ListFailedLogins(time.Now().Add(-auditSince), listLimit)
	if err != nil {
		return fmt.Errorf("failed to list failed logins: %w", err)
	}

	printAudit(logs)
	return nil
}

func auditStats(cmd *cobra.Command, args []string) error {
	database, err := initDB()
	if err != nil {
		return err
	}
	defer database.Close()

	auditRepo := repository.NewAuditRepository(database.DB)
	since := time.Now().Add(-auditSince)

	actions := []string{
		models.ActionAdminLogin,
		models.ActionIssuerRegister,
		models.ActionIssuerApprove,
		models.ActionIssuerRemove,
		models.ActionCertIssue,
		models.ActionCertRevoke,
		models.ActionCertVerify,
		models.ActionDepositWithdraw,
	}

	fmt.Printf("\nAudit entries since %s\n\n", since.Format("2006-01-02 15:04:05"))
	for _, action := range actions {
		n, err := auditRepo.CountByAction(action, since)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", action, err)
		}
		fmt.Printf("%-20s %d\n", action, n)
	}

	return nil
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	database, err := initDB()
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := repository.NewAuditRepository(database.DB).DeleteOld(time.Now().Add(-auditBefore))
	if err != nil {
		return fmt.Errorf("failed to prune audit logs: %w", err)
	}

	fmt.Printf("Deleted %d audit entries\n", n)
	return nil
}

func printAudit(logs []*models.AuditLog) {
	if len(logs) == 0 {
		fmt.Println("No audit entries found")
		return
	}

	fmt.Printf("\n%-20s %-18s %-44s %-16s %-8s %s\n", "Time", "Action", "Actor", "Client IP", "Success", "Error")
	fmt.Println("------------------------------------------------------------------------------------------------------------------------------")

	for _, l := range logs {
		success := "No"
		if l.Success {
			success = "Yes"
		}
		fmt.Printf("%-20s %-18s %-44s %-16s %-8s %s\n",
			l.Timestamp.Local().Format("2006-01-02 15:04:05"),
			l.Action,
			l.Actor,
			l.ClientIP,
			success,
			l.ErrorMsg,
		)
	}
}
