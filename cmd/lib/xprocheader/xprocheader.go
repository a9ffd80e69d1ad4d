package xprocheader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/obfuscate"
	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/synthetics"
)

// EncodingKeyEnv is the environment variable --key defaults to.
const EncodingKeyEnv = "CROSSPROCESS_ENCODING_KEY"

// Run runs xprocheader.
//
// It returns 0 to indicate success,
// and non-zero to indicate failure.
//
// Your main function usually should look like:
//
//	func main() {
//	  os.Exit(xprocheader.Run())
//	}
func Run() (ret int) {
	if err := RunArgs(os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	return 0
}

// RunArgs is the more customizable/testable version of Run.
//
// In production code it expects you to pass in os.Args and os.Stdout.
func RunArgs(args []string, out io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args[1:])
	root.SetOut(out)
	return root.Execute()
}

type options struct {
	key     string
	trusted []int64
}

func (o *options) requireKey() error {
	if o.key == "" {
		return fmt.Errorf("--key or $%s is required", EncodingKeyEnv)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	opts := new(options)
	root := &cobra.Command{
		Use:           "xprocheader",
		Short:         "xprocheader encodes, decodes and probes cross process headers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(
		&opts.key,
		"key",
		os.Getenv(EncodingKeyEnv),
		"The encoding key shared by the applications.",
	)
	root.PersistentFlags().Int64SliceVar(
		&opts.trusted,
		"trusted",
		nil,
		"The trusted account ids. When empty, the account of decoded ids is not checked.",
	)
	root.AddCommand(
		newObfuscateCmd(opts),
		newDeobfuscateCmd(opts),
		newDecodeCmd(opts),
		newProbeCmd(opts),
	)
	return root
}

func newObfuscateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "obfuscate PLAINTEXT",
		Short: "Obfuscate a header value with the encoding key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireKey(); err != nil {
				return err
			}
			encoded, err := obfuscate.Obfuscate(args[0], opts.key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
}

func newDeobfuscateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "deobfuscate VALUE",
		Short: "Deobfuscate a header value with the encoding key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireKey(); err != nil {
				return err
			}
			plain, err := obfuscate.Deobfuscate(args[0], opts.key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
}

// decoder decodes an obfuscated header value into printable fields.
type decoder func(value string, opts *options) (map[string]interface{}, error)

var decoders = map[string]decoder{
	"id":          decodeID,
	"transaction": decodeTransaction,
	"app-data":    decodeAppData,
	"synthetics":  decodeSynthetics,
}

func newDecodeCmd(opts *options) *cobra.Command {
	kind := headerType{
		decoders: decoders,
		name:     "transaction",
	}
	cmd := &cobra.Command{
		Use:   "decode VALUE",
		Short: "Decode an obfuscated cross process header and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireKey(); err != nil {
				return err
			}
			fields, err := kind.decoder()(args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fields)
		},
	}
	cmd.Flags().Var(
		&kind,
		"type",
		fmt.Sprintf("The header to decode (%s).", kind.names()),
	)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func trustedSet(opts *options) set.Int64 {
	if len(opts.trusted) == 0 {
		return nil
	}
	return set.Int64SliceToSet(opts.trusted)
}

func checkID(id string, opts *options) error {
	if trusted := trustedSet(opts); trusted != nil {
		return cat.ValidateCrossProcessID(id, trusted)
	}
	if cat.AccountIDFromCrossProcessID(id) < 0 {
		return fmt.Errorf("%w: %q", cat.ErrMalformedID, id)
	}
	return nil
}

func decodeID(value string, opts *options) (map[string]interface{}, error) {
	id, err := obfuscate.Deobfuscate(value, opts.key)
	if err != nil {
		return nil, err
	}
	if err := checkID(id, opts); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"crossProcessID": id,
		"accountID":      cat.AccountIDFromCrossProcessID(id),
	}, nil
}

func decodeTransaction(value string, opts *options) (map[string]interface{}, error) {
	d, err := cat.DecodeTransaction(value, opts.key)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"guid":     d.GUID,
		"recordTT": d.RecordTT,
		"tripID":   d.TripID,
		"pathHash": d.PathHash,
	}, nil
}

func decodeAppData(value string, opts *options) (map[string]interface{}, error) {
	var data *cat.AppData
	if trusted := trustedSet(opts); trusted != nil {
		var err error
		data, err = cat.DecodeAppData(value, opts.key, trusted)
		if err != nil {
			return nil, err
		}
	} else {
		plain, err := obfuscate.Deobfuscate(value, opts.key)
		if err != nil {
			return nil, err
		}
		data = new(cat.AppData)
		if err := json.Unmarshal([]byte(plain), data); err != nil {
			return nil, err
		}
	}
	return appDataFields(data), nil
}

func appDataFields(data *cat.AppData) map[string]interface{} {
	return map[string]interface{}{
		"crossProcessID":  data.CrossProcessID,
		"transactionName": data.TransactionName,
		"queueTime":       time.Duration(data.QueueTime).Seconds(),
		"responseTime":    time.Duration(data.ResponseTime).Seconds(),
		"contentLength":   data.ContentLength,
		"guid":            data.GUID,
		"recordTT":        data.RecordTT,
	}
}

func decodeSynthetics(value string, opts *options) (map[string]interface{}, error) {
	h, err := synthetics.DecodeObfuscated(value, opts.key)
	if err != nil {
		return nil, err
	}
	if trusted := trustedSet(opts); trusted != nil && !trusted.Contains(int64(h.AccountID)) {
		return nil, fmt.Errorf("%w: synthetics account %d", cat.ErrUntrustedAccount, h.AccountID)
	}
	return map[string]interface{}{
		"version":    h.Version,
		"accountID":  h.AccountID,
		"resourceID": h.ResourceID,
		"jobID":      h.JobID,
		"monitorID":  h.MonitorID,
	}, nil
}
