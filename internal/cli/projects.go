package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sovtrack/sovtrack/internal/models"
)

var (
	projectOwnerID     int64
	projectDomain      string
	projectIndustry    string
	projectLanguage    string
	projectCompetitors []string
	projectKeywords    []string
	projectLLMs        []string
	projectQueries     int
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage monitored projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE:  runProjectsList,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add <brand-name>",
	Short: "Add a project for a brand",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsAdd,
}

func init() {
	projectsAddCmd.Flags().Int64Var(&projectOwnerID, "owner", 1, "owning user id")
	projectsAddCmd.Flags().StringVar(&projectDomain, "domain", "", "brand domain for citation matching")
	projectsAddCmd.Flags().StringVar(&projectIndustry, "industry", "", "industry used in generated queries")
	projectsAddCmd.Flags().StringVar(&projectLanguage, "language", "en", "query language (en or es)")
	projectsAddCmd.Flags().StringSliceVar(&projectCompetitors, "competitor", nil, "competitor brand (repeatable)")
	projectsAddCmd.Flags().StringSliceVar(&projectKeywords, "keyword", nil, "brand keyword alias (repeatable)")
	projectsAddCmd.Flags().StringSliceVar(&projectLLMs, "llm", models.KnownProviders, "LLM provider to query (repeatable)")
	projectsAddCmd.Flags().IntVar(&projectQueries, "queries", 5, "queries per LLM per day")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	projects, err := store.ListProjects(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println(FormatWarning("No projects yet. Add one with 'sovtrack projects add'."))
		return nil
	}

	fmt.Println(FormatHeader("📋 Projects"))
	fmt.Printf("%-6s %-24s %-20s %-8s %-8s %s\n", "ID", "BRAND", "LLMS", "QUERIES", "ACTIVE", "COMPETITORS")
	for _, p := range projects {
		active := FormatSuccess("yes")
		if !p.IsActive {
			active = FormatMeta("no")
		}
		fmt.Printf("%-6d %-24s %-20s %-8d %-8s %s\n",
			p.ID, truncate(p.BrandName, 24), truncate(strings.Join(p.EnabledLLMs, ","), 20),
			p.QueriesPerLLM, active, truncate(strings.Join(p.Competitors, ", "), 40))
	}
	return nil
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	for _, tag := range projectLLMs {
		if !models.IsKnownProvider(tag) {
			return fmt.Errorf("unknown LLM provider: %s", tag)
		}
	}

	project := &models.Project{
		OwnerID:       projectOwnerID,
		BrandName:     args[0],
		BrandDomain:   projectDomain,
		BrandKeywords: projectKeywords,
		Industry:      projectIndustry,
		Language:      projectLanguage,
		Competitors:   projectCompetitors,
		EnabledLLMs:   projectLLMs,
		QueriesPerLLM: projectQueries,
		IsActive:      true,
	}

	if err := store.CreateProject(context.Background(), project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	fmt.Println(FormatSuccess(fmt.Sprintf("✅ Created project %d for %s", project.ID, project.BrandName)))
	return nil
}
