package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/addislabs/jobsift/internal/logger"
	"github.com/addislabs/jobsift/internal/match"
	"github.com/addislabs/jobsift/internal/posting"
	"github.com/addislabs/jobsift/internal/textnorm"
)

const (
	PromptNextPage = "Next page"
	PromptQuit     = "Quit"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored job postings",
	Long: "Ranks active postings against a free-text query. A city or job type " +
		"mentioned in the query becomes a filter; an empty query lists the newest " +
		"postings first.",
	Run: func(cmd *cobra.Command, args []string) {
		search(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("location", "l", "", "only postings in this location")
	searchCmd.Flags().StringP("job-type", "t", "", "only postings with this job type (full_time, part_time, contract, remote, internship)")
	searchCmd.Flags().Int("min-salary", 0, "only postings paying at least this much; postings without salary still pass")
	searchCmd.Flags().Int("max-experience", -1, "only postings requiring at most this many years")
	searchCmd.Flags().IntP("page-size", "n", 10, "results per page")
	searchCmd.Flags().Bool("no-prompt", false, "print every result and exit without paging")
}

// search is the interactive query command.
func search(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	st, cleanup, err := openStore(ctx, config, false)
	if err != nil {
		zl.Fatal("opening the posting store", zap.Error(err))
	}
	defer cleanup()

	query := buildQuery(cmd, strings.Join(args, " "), config)

	corpus, err := st.FindActive(ctx)
	if err != nil {
		zl.Fatal("loading active postings", zap.Error(err))
	}

	results := match.NewEngine(config.Match).Match(query, corpus)

	zl.Info("search finished",
		zap.String("query", query.RawText),
		zap.Int("corpus", len(corpus)),
		zap.Int("matches", results.Len()),
	)

	if results.Len() == 0 {
		fmt.Println("no matching postings")
		return
	}

	pageSize, _ := cmd.Flags().GetInt("page-size")
	if pageSize <= 0 {
		pageSize = 10
	}
	noPrompt, _ := cmd.Flags().GetBool("no-prompt")

	if noPrompt {
		printResults(results.All(), 0)
		return
	}

	if err := pageThrough(results, pageSize); err != nil {
		zl.Fatal("exiting", zap.Error(err))
	}
}

// buildQuery parses the free text and overlays the structured flag filters.
func buildQuery(cmd *cobra.Command, raw string, config *Config) match.Query {
	normalizer := textnorm.New(nil)
	query := match.ParseQuery(raw, config.Detection.Locations, normalizer)

	if loc := cmd.Flag("location").Value.String(); loc != "" {
		query.LocationFilter = normalizer.Normalize(loc)
	}
	if jt := cmd.Flag("job-type").Value.String(); jt != "" {
		query.JobTypeFilter = posting.ParseJobType(jt)
	}
	if minSalary, _ := cmd.Flags().GetInt("min-salary"); minSalary > 0 {
		query.MinSalary = minSalary
	}
	if maxExp, _ := cmd.Flags().GetInt("max-experience"); maxExp >= 0 {
		query.MaxExperience = maxExp
	}

	return query
}

// pageThrough shows one page at a time, prompting between pages. The result
// set is already sorted; quitting and re-running restarts from page one.
func pageThrough(results *match.Results, pageSize int) error {
	for offset := 0; ; offset += pageSize {
		page := results.Page(offset, pageSize)
		if len(page) == 0 {
			fmt.Println("no more results")
			return nil
		}

		printResults(page, offset)

		if offset+pageSize >= results.Len() {
			return nil
		}

		prompt := promptui.Select{
			Label: fmt.Sprintf("Showing %d-%d of %d", offset+1, offset+len(page), results.Len()),
			Items: []string{PromptNextPage, PromptQuit},
		}

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}
		if action == PromptQuit {
			return nil
		}
	}
}

func printResults(page []match.Result, offset int) {
	for i, r := range page {
		fmt.Printf("%3d. %s\n", offset+i+1, formatResult(r))
	}
}

// formatResult renders one posting as a single summary line.
func formatResult(r match.Result) string {
	p := r.Posting

	parts := []string{p.Title}
	if p.Company != "" {
		parts = append(parts, p.Company)
	}
	if p.Location != "" {
		parts = append(parts, p.Location)
	}
	if p.JobType != posting.Unknown {
		parts = append(parts, string(p.JobType))
	}
	if salary := formatSalary(p); salary != "" {
		parts = append(parts, salary)
	}

	age := time.Since(p.FirstSeenAt).Round(time.Hour)
	return fmt.Sprintf("%s  (score %.2f, %s old)", strings.Join(parts, " / "), r.Score, formatAge(age))
}

func formatSalary(p *posting.JobPosting) string {
	switch {
	case p.SalaryMin > 0 && p.SalaryMax > 0 && p.SalaryMin != p.SalaryMax:
		return fmt.Sprintf("%d-%d", p.SalaryMin, p.SalaryMax)
	case p.SalaryMin > 0:
		return fmt.Sprintf("%d", p.SalaryMin)
	case p.SalaryMax > 0:
		return fmt.Sprintf("%d", p.SalaryMax)
	default:
		return ""
	}
}

func formatAge(age time.Duration) string {
	if age < 0 {
		age = 0
	}
	days := int(age.Hours()) / 24
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(age.Hours()))
}
