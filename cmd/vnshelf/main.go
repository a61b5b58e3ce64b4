package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const usage = `Usage: vnshelf [flags] <commande>

Commandes :
  health                  état du serveur
  version                 version du serveur
  stats                   statistiques de la bibliothèque
  search <texte>          recherche dans le catalogue
  export [statut]         écrit la sauvegarde JSON sur stdout
  import <fichier.json>   importe une sauvegarde
  refresh                 lance un refresh des snapshots et suit sa progression`

func main() {
	baseURL := flag.String("server", envOr("VNSHELF_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout HTTP")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	api := *baseURL + "/api/v1"

	switch args[0] {
	case "health":
		run(client, http.MethodGet, api+"/health", nil)
	case "version":
		run(client, http.MethodGet, api+"/version", nil)
	case "stats":
		run(client, http.MethodGet, api+"/stats", nil)
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "search: texte manquant")
			os.Exit(2)
		}
		run(client, http.MethodGet, api+"/catalog/search?q="+url.QueryEscape(args[1]), nil)
	case "export":
		target := api + "/backup/export"
		if len(args) > 1 {
			target += "?status=" + url.QueryEscape(args[1])
		}
		run(client, http.MethodGet, target, nil)
	case "import":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "import: fichier manquant")
			os.Exit(2)
		}
		b, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Erreur:", err)
			os.Exit(1)
		}
		run(client, http.MethodPost, api+"/backup/import", b)
	case "refresh":
		refresh(client, api)
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

func run(client *http.Client, method, target string, body []byte) {
	status, b, err := call(client, method, target, body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}

	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
	} else {
		os.Stdout.Write(b)
		os.Stdout.Write([]byte("\n"))
	}
	if status >= 400 {
		os.Exit(1)
	}
}

func call(client *http.Client, method, target string, body []byte) (int, []byte, error) {
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

type refreshJob struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Updated int    `json:"updated"`
	Error   string `json:"error"`
}

// refresh démarre le job puis l'interroge jusqu'à un état terminal.
func refresh(client *http.Client, api string) {
	status, b, err := call(client, http.MethodPost, api+"/library/refresh", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	if status >= 400 {
		fmt.Fprintln(os.Stderr, "Erreur:", string(b))
		os.Exit(1)
	}
	var job refreshJob
	if err := json.Unmarshal(b, &job); err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}

	for job.State == "running" {
		time.Sleep(time.Second)
		status, b, err = call(client, http.MethodGet, api+"/library/refresh/"+job.ID, nil)
		if err != nil || status >= 400 {
			fmt.Fprintln(os.Stderr, "Erreur:", err, string(b))
			os.Exit(1)
		}
		if err := json.Unmarshal(b, &job); err != nil {
			fmt.Fprintln(os.Stderr, "Erreur:", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "\r%d/%d", job.Current, job.Total)
	}
	fmt.Fprintln(os.Stderr)

	fmt.Printf("%s: %d entrée(s) mise(s) à jour\n", job.State, job.Updated)
	if job.State != "completed" {
		if job.Error != "" {
			fmt.Fprintln(os.Stderr, job.Error)
		}
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
