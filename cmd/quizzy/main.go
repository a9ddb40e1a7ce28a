package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/nielpattin/quizzy-sub001/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AuthBaseURL string `json:"auth_base_url"`
	IDToken     string `json:"id_token"`
}

var buildVersion = "dev"

const requestTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "whoami":
		err = commandWhoami()
	case "data":
		err = commandData()
	case "stats":
		err = commandStats()
	case "quiz":
		err = commandQuiz(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Firebase ID token (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default "+apiclient.DefaultAPIURL+")")
	authBase := fs.String("auth", "", "Auth server base URL (default "+apiclient.DefaultAuthURL+")")
	fs.Parse(args)

	secret := strings.TrimSpace(*token)
	if secret == "" {
		fmt.Print("ID token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		secret = strings.TrimSpace(string(raw))
	}
	if secret == "" {
		return errors.New("an ID token is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(*apiBase); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(*authBase); v != "" {
		cfg.AuthBaseURL = v
	}

	auth, err := apiclient.New(cfg.AuthBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	who, err := auth.Verify(ctx, secret)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}

	cfg.IDToken = secret
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("Logged in as %s (%s)\n", who.Email, who.UID)
	return nil
}

func commandWhoami() error {
	cfg, token, err := session()
	if err != nil {
		return err
	}
	auth, err := apiclient.New(cfg.AuthBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	who, err := auth.Verify(ctx, token)
	if err != nil {
		return err
	}
	fmt.Printf("uid:   %s\nemail: %s\n", who.UID, who.Email)
	return nil
}

func commandData() error {
	cfg, token, err := session()
	if err != nil {
		return err
	}
	auth, err := apiclient.New(cfg.AuthBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	data, err := auth.Data(ctx, token)
	if err != nil {
		return err
	}
	fmt.Println(data.Message)
	fmt.Printf("at %s\n", data.Timestamp)
	return nil
}

func commandStats() error {
	cfg, token, err := session()
	if err != nil {
		return err
	}
	api, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	st, err := api.SessionStats(ctx, token)
	if err != nil {
		return err
	}
	fmt.Printf("sessions:      %d (%d active, %d completed)\n", st.TotalSessions, st.ActiveSessions, st.CompletedSessions)
	fmt.Printf("participants:  %d\n", st.TotalParticipants)
	fmt.Printf("avg duration:  %.1f min\n", st.AvgDuration)
	return nil
}

func commandQuiz(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: quizzy quiz <list|create> [flags]")
	}
	sub := args[0]
	rest := args[1:]
	switch sub {
	case "list":
		return quizList(rest)
	case "create":
		return quizCreate(rest)
	default:
		return fmt.Errorf("unknown quiz command: %s", sub)
	}
}

func quizList(args []string) error {
	fs := flag.NewFlagSet("quiz list", flag.ExitOnError)
	mine := fs.Bool("mine", false, "Only quizzes you created")
	limit := fs.Int("limit", 0, "Maximum number of quizzes to display")
	fs.Parse(args)

	cfg, token, err := session()
	if err != nil {
		return err
	}
	api, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	creator := ""
	if *mine {
		creator = "me"
	}
	quizzes, err := api.ListQuizzes(ctx, token, creator, *limit)
	if err != nil {
		return err
	}
	for _, q := range quizzes {
		fmt.Printf("%s\t%s\t%s\n", q.ID, q.Title, q.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func quizCreate(args []string) error {
	fs := flag.NewFlagSet("quiz create", flag.ExitOnError)
	title := fs.String("title", "", "Quiz title")
	description := fs.String("description", "", "Optional description")
	fs.Parse(args)

	if strings.TrimSpace(*title) == "" {
		return errors.New("--title is required")
	}
	cfg, token, err := session()
	if err != nil {
		return err
	}
	api, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	q, err := api.CreateQuiz(ctx, token, apiclient.CreateQuizInput{Title: *title, Description: *description})
	if err != nil {
		return err
	}
	fmt.Printf("Created quiz %s (%s)\n", q.Title, q.ID)
	return nil
}

func session() (cliConfig, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, "", err
	}
	token := strings.TrimSpace(cfg.IDToken)
	if token == "" {
		return cliConfig{}, "", errors.New("please login first using 'quizzy login'")
	}
	return cfg, token, nil
}

func loadConfig() (cliConfig, error) {
	defaults := cliConfig{APIBaseURL: apiclient.DefaultAPIURL, AuthBaseURL: apiclient.DefaultAuthURL}
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaults.APIBaseURL
	}
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = defaults.AuthBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "quizzy", "config.json"), nil
}

func printUsage() {
	fmt.Printf("quizzy CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	quizzy login [--token <id-token>] [--api http://localhost:3000] [--auth http://localhost:3001]
	quizzy whoami
	quizzy data
	quizzy stats
	quizzy quiz list [--mine] [--limit N]
	quizzy quiz create --title <title> [--description text]
	quizzy version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
