package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shoalcreek/privacycore/internal/envelope"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	baseURL := flag.String("url", defaultBaseURL, "privacycore base URL")
	token := flag.String("token", os.Getenv("PRIVACYCORE_TOKEN"), "JWT Bearer token (or PRIVACYCORE_TOKEN)")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, rest := args[0], args[1:]
	if cmd == "keygen" {
		if err := runKeygen(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	client := &client{baseURL: strings.TrimSuffix(*baseURL, "/"), token: *token}
	if err := run(client, cmd, rest); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `privacycore-cli - cryptographic core command-line client

Usage: privacycore-cli [flags] <command> [args]

Commands:
  keygen                          Generate a random 32-byte master key (hex)
  key create <name> [algorithm]   Create a key (default AES-256-CBC)
  key list                        List your keys
  key revoke <public_id>          Revoke a key
  encrypt <public_id> <plaintext> [label]   Encrypt with key (plaintext or - for stdin)
  decrypt <public_id> <envelope> [label]    Decrypt an envelope
  backup export                   Export your keys as a backup artifact
  backup import <artifact>        Import a backup artifact (or - for stdin)

Flags:
  -url string   privacycore base URL (default %s)
  -token string JWT Bearer token (or set PRIVACYCORE_TOKEN)

`, defaultBaseURL)
}

func runKeygen() error {
	key, err := envelope.GenerateMasterKeyHex()
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

type client struct {
	baseURL string
	token   string
}

func (c *client) do(method, path string, body []byte) ([]byte, int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	hc := &http.Client{Timeout: 15 * time.Second}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return out, resp.StatusCode, nil
}

func run(cl *client, cmd string, args []string) error {
	switch cmd {
	case "key":
		if len(args) < 1 {
			return fmt.Errorf("key subcommand required")
		}
		return runKey(cl, args[0], args[1:])
	case "encrypt":
		if len(args) < 2 {
			return fmt.Errorf("encrypt <public_id> <plaintext> [label] required")
		}
		label := ""
		if len(args) > 2 {
			label = args[2]
		}
		return runEncrypt(cl, args[0], args[1], label)
	case "decrypt":
		if len(args) < 2 {
			return fmt.Errorf("decrypt <public_id> <envelope> [label] required")
		}
		label := ""
		if len(args) > 2 {
			label = args[2]
		}
		return runDecrypt(cl, args[0], args[1], label)
	case "backup":
		if len(args) < 1 {
			return fmt.Errorf("backup export|import required")
		}
		return runBackup(cl, args[0], args[1:])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runKey(cl *client, sub string, rest []string) error {
	switch sub {
	case "create":
		if len(rest) < 1 {
			return fmt.Errorf("key create <name> [algorithm] required")
		}
		algorithm := "AES-256-CBC"
		if len(rest) > 1 {
			algorithm = rest[1]
		}
		body, _ := json.Marshal(map[string]string{"name": rest[0], "algorithm": algorithm})
		out, code, err := cl.do("POST", "/v1/keys", body)
		if err != nil {
			return err
		}
		if code != http.StatusCreated {
			return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
		}
		fmt.Println(string(out))
		return nil
	case "list":
		out, code, err := cl.do("GET", "/v1/keys", nil)
		if err != nil {
			return err
		}
		if code != http.StatusOK {
			return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
		}
		fmt.Println(string(out))
		return nil
	case "revoke":
		if len(rest) < 1 {
			return fmt.Errorf("key revoke <public_id> required")
		}
		out, code, err := cl.do("DELETE", "/v1/keys/"+rest[0], nil)
		if err != nil {
			return err
		}
		if code != http.StatusOK {
			return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
		}
		fmt.Println(string(out))
		return nil
	default:
		return fmt.Errorf("unknown key subcommand %q", sub)
	}
}

func runEncrypt(cl *client, publicID, plaintext, label string) error {
	if plaintext == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		plaintext = string(b)
	}
	body, _ := json.Marshal(map[string]string{"plaintext": plaintext, "resource_label": label})
	out, code, err := cl.do("POST", "/v1/keys/"+publicID+"/encrypt", body)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
	}
	var res struct {
		Envelope string `json:"envelope"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return err
	}
	fmt.Println(res.Envelope)
	return nil
}

func runDecrypt(cl *client, publicID, env, label string) error {
	if env == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		env = string(bytes.TrimSpace(b))
	}
	body, _ := json.Marshal(map[string]string{"envelope": env, "resource_label": label})
	out, code, err := cl.do("POST", "/v1/keys/"+publicID+"/decrypt", body)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
	}
	var res struct {
		Plaintext    string `json:"plaintext"`
		PlaintextB64 string `json:"plaintext_b64"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return err
	}
	if res.Plaintext != "" {
		fmt.Print(res.Plaintext)
	} else {
		b, _ := base64.StdEncoding.DecodeString(res.PlaintextB64)
		os.Stdout.Write(b)
	}
	return nil
}

func runBackup(cl *client, sub string, rest []string) error {
	switch sub {
	case "export":
		out, code, err := cl.do("POST", "/v1/backup/export", nil)
		if err != nil {
			return err
		}
		if code != http.StatusOK {
			return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
		}
		var res struct {
			Artifact string `json:"artifact"`
		}
		if err := json.Unmarshal(out, &res); err != nil {
			return err
		}
		fmt.Println(res.Artifact)
		return nil
	case "import":
		if len(rest) < 1 {
			return fmt.Errorf("backup import <artifact> required")
		}
		artifact := rest[0]
		if artifact == "-" {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			artifact = string(bytes.TrimSpace(b))
		}
		body, _ := json.Marshal(map[string]string{"artifact": artifact})
		out, code, err := cl.do("POST", "/v1/backup/import", body)
		if err != nil {
			return err
		}
		if code != http.StatusOK {
			return fmt.Errorf("%s: %s", http.StatusText(code), string(out))
		}
		fmt.Println(string(out))
		return nil
	default:
		return fmt.Errorf("unknown backup subcommand %q", sub)
	}
}
