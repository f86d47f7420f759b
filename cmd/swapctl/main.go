// Command swapctl is a CLI client for a running swapd instance,
// shaped after swapcli's single-binary-per-subcommand convention
// (_examples/bingcicle-atomic-swap/cmd/swapcli): each subcommand hits
// the local daemon over HTTP and prints the JSON response.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
)

type options struct {
	Addr string `short:"a" long:"addr" description:"swapd HTTP address" default:"http://127.0.0.1:3000"`

	Quote struct {
		Direction  string `long:"direction" description:"usdc_to_xmr or xmr_to_usdc" required:"true"`
		USDCAmount uint64 `long:"usdc-amount" required:"true"`
		XMRAmount  uint64 `long:"xmr-amount" required:"true"`
	} `command:"quote" description:"request a swap quote"`

	Accept struct {
		QuoteID            string `long:"quote-id" required:"true"`
		CounterpartyPubkey string `long:"counterparty-pubkey"`
	} `command:"accept" description:"accept a quote and start a swap"`

	Status struct {
		SwapID string `long:"swap-id" required:"true"`
	} `command:"status" description:"look up a swap's status"`

	Health struct{} `command:"health" description:"check daemon health"`

	Metrics struct{} `command:"metrics" description:"dump daemon metrics"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "swapctl:", err)
		os.Exit(1)
	}

	if err := dispatch(parser.Active.Name, opts); err != nil {
		fmt.Fprintln(os.Stderr, "swapctl:", err)
		os.Exit(1)
	}
}

func dispatch(command string, opts options) error {
	switch command {
	case "quote":
		return postJSON(opts.Addr+"/v1/quote", map[string]interface{}{
			"direction":   opts.Quote.Direction,
			"usdc_amount": opts.Quote.USDCAmount,
			"xmr_amount":  opts.Quote.XMRAmount,
		})
	case "accept":
		body := map[string]interface{}{"quote_id": opts.Accept.QuoteID}
		if opts.Accept.CounterpartyPubkey != "" {
			body["counterparty_pubkey"] = opts.Accept.CounterpartyPubkey
		}
		return postJSON(opts.Addr+"/v1/swap/accept", body)
	case "status":
		return getJSON(opts.Addr + "/v1/swap/" + opts.Status.SwapID)
	case "health":
		return getJSON(opts.Addr + "/health")
	case "metrics":
		return getJSON(opts.Addr + "/metrics")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func postJSON(url string, body map[string]interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func getJSON(url string) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	if resp.StatusCode >= 400 {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return nil
}
