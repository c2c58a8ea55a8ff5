package app

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/ethkit/ethkit/internal/ens"
	"github.com/ethkit/ethkit/internal/normalize"
	"github.com/ethkit/ethkit/internal/sig"
)

// encodingFlags are shared by the hashing commands that accept either a hex
// string or plain text.
type encodingFlags struct {
	hexMode  bool
	utf8Mode bool
}

func (f *encodingFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.hexMode, "hex", false, "Treat the argument as hex data")
	cmd.Flags().BoolVar(&f.utf8Mode, "utf8", false, "Treat the argument as UTF-8 text")
}

func (s *runtimeState) newKeccakCommand() *cobra.Command {
	var flags encodingFlags
	cmd := &cobra.Command{
		Use:   "keccak DATA",
		Short: "Keccak-256 hash of hex data or UTF-8 text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := normalize.Normalize(args[0], flags.hexMode, flags.utf8Mode)
			if err != nil {
				return err
			}
			hash := crypto.Keccak256(payload.Data)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "KECCACK256(%s:%s) = %s\n",
				payload.Kind, hexutil.Encode(payload.Data), hexutil.Encode(hash))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (s *runtimeState) newSha256Command() *cobra.Command {
	var flags encodingFlags
	cmd := &cobra.Command{
		Use:   "sha256 DATA",
		Short: "SHA2-256 hash of hex data or UTF-8 text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := normalize.Normalize(args[0], flags.hexMode, flags.utf8Mode)
			if err != nil {
				return err
			}
			hash := sha256.Sum256(payload.Data)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "SHA2-256(%s:%s) = %s\n",
				payload.Kind, hexutil.Encode(payload.Data), hexutil.Encode(hash[:]))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (s *runtimeState) newNamehashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "namehash NAME",
		Short: "EIP-137 namehash of an ENS name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := ens.Namehash(args[0])
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "NAMEHASH(%s) = %s\n", args[0], hash.Hex())
			return nil
		},
	}
}

func (s *runtimeState) newSighashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sighash SIGNATURE",
		Short: "4-byte selector of a function signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := sig.Selector(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), selector)
			return nil
		},
	}
}

func (s *runtimeState) newUtf8BytesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "utf8-bytes TEXT",
		Short: "Hex encoding of the UTF-8 bytes of text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode([]byte(args[0])))
			return nil
		},
	}
}

func (s *runtimeState) newUtf8StringCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "utf8-string DATA",
		Short: "Decode hex data as a UTF-8 string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := normalize.HexData(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
