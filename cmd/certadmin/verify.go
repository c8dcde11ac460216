package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamscao/certledger/internal/qrscan"
	"github.com/adamscao/certledger/internal/verify"
)

var (
	verifyQRFile string
	verifyFile   string
	scanTimeout  time.Duration
	qrOutput     string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [hash]",
	Short: "Verify a certificate by hash, QR image or original file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

var scanCmd = &cobra.Command{
	Use:   "scan <snapshot>",
	Short: "Poll a camera snapshot file until it shows a QR code, then verify it",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var qrCmd = &cobra.Command{
	Use:   "qr <hash>",
	Short: "Render the verification link of a certificate as a QR code PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runQR,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyQRFile, "qr-file", "", "Image containing the certificate QR code")
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "Original certificate file")
	verifyCmd.MarkFlagsMutuallyExclusive("qr-file", "file")

	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "Give up after this long")

	qrCmd.Flags().StringVarP(&qrOutput, "output", "o", "", "Output PNG path (default <hash>.png)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	inputs := len(args)
	if verifyQRFile != "" {
		inputs++
	}
	if verifyFile != "" {
		inputs++
	}
	if inputs != 1 {
		return errors.New("give exactly one of: a hash argument, --qr-file, --file")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var res *verify.Result
	switch {
	case verifyQRFile != "":
		f, err := os.Open(verifyQRFile)
		if err != nil {
			return err
		}
		defer f.Close()

		payload, err := qrscan.DecodeReader(f)
		if err != nil {
			return err
		}
		res, err = s.svcs.Verifier.ByPayload(ctx, payload)
		if err != nil {
			return err
		}
	case verifyFile != "":
		f, err := os.Open(verifyFile)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err = s.svcs.Verifier.ByFile(ctx, filepath.Base(verifyFile), f)
		if err != nil {
			return err
		}
	default:
		res, err = s.svcs.Verifier.ByHash(ctx, args[0])
		if err != nil {
			return err
		}
	}

	printResult(res)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Scanning %s every %s...\n", args[0], cfg.ScanInterval())

	scanCtx, scanCancel := context.WithTimeout(ctx, scanTimeout)
	defer scanCancel()

	scanner := qrscan.NewScanner(qrscan.FileSource{Path: args[0]}, cfg.ScanInterval(), logger.Named("scan"))
	payload, err := scanner.Scan(scanCtx)
	if err != nil {
		return fmt.Errorf("scan stopped: %w", err)
	}

	res, err := s.svcs.Verifier.ByPayload(ctx, payload)
	if err != nil {
		return err
	}

	printResult(res)
	return nil
}

func runQR(cmd *cobra.Command, args []string) error {
	png, err := qrscan.Encode(cfg.VerifyURL(args[0]), cfg.Certificates.QRSize)
	if err != nil {
		return err
	}

	out := qrOutput
	if out == "" {
		out = args[0] + ".png"
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("Wrote %s\n", out)
	return nil
}

func printResult(res *verify.Result) {
	fmt.Printf("\nMethod: %s\n", res.Method)
	fmt.Printf("Hash:   %s\n", res.Hash)
	if !res.Valid {
		fmt.Printf("Result: INVALID (%s)\n", res.Reason)
		return
	}

	fmt.Printf("Result: VALID\n")
	if c := res.Certificate; c != nil {
		fmt.Printf("\nRecipient:  %s\n", c.RecipientName)
		fmt.Printf("Course:     %s\n", c.CourseName)
		fmt.Printf("Issued:     %s\n", c.IssueDate.Format("2006-01-02 15:04:05"))
		fmt.Printf("Issuer:     %s\n", c.Issuer.Hex())
		if c.IPFSURL != "" {
			fmt.Printf("IPFS:       %s\n", c.IPFSURL)
		}
	}
}
