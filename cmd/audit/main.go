// Package main implements the rule table audit tool. It compiles the rule
// table from its CSV source and reports entry points, dangling targets and
// ambiguous rules per domain, exiting non-zero when any domain has
// findings or fails to compile.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"referral-backend/domain/services"
	"referral-backend/infrastructure/persistence/csvfile"
)

func main() {
	questionsPath := flag.String("questions", "data/questions.csv", "path to the questions CSV")
	rulesPath := flag.String("rules", "data/rules.csv", "path to the rules CSV")
	domainFilter := flag.String("domain", "", "audit a single domain (default: all)")
	showMap := flag.Bool("map", false, "print the rule map for each audited domain")
	maxDepth := flag.Int("depth", services.DefaultRuleMapDepth, "rule map depth limit")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	loader := csvfile.NewLoader(*questionsPath, *rulesPath, logger)
	questions, err := loader.LoadQuestions(ctx)
	if err != nil {
		logger.Fatal("Failed to load questions", zap.Error(err))
	}
	rules, err := loader.LoadRules(ctx)
	if err != nil {
		logger.Fatal("Failed to load rules", zap.Error(err))
	}

	compiler := services.NewCompiler(logger)
	table := compiler.Compile(questions, rules)

	fmt.Printf("Rule table %s: %d questions, %d rules, %d domains\n\n",
		table.Hash(), table.QuestionCount(), table.RuleCount(), len(table.Domains()))

	exitCode := 0

	for domain, compileErr := range table.Failures() {
		if *domainFilter != "" && domain != *domainFilter {
			continue
		}
		fmt.Printf("=== %s ===\n  COMPILE FAILED: %v\n\n", domain, compileErr)
		exitCode = 1
	}

	auditor := services.NewRuleAuditor()
	renderer := services.NewRuleMapRenderer(*maxDepth)

	for _, domain := range table.Domains() {
		if *domainFilter != "" && domain.String() != *domainFilter {
			continue
		}

		rs, ok := table.Get(domain)
		if !ok {
			continue
		}

		report := auditor.Audit(rs)

		fmt.Printf("=== %s ===\n", domain)
		fmt.Printf("  questions: %d, rules: %d\n", report.QuestionCount, report.RuleCount)
		fmt.Printf("  entry points: %v\n", report.EntryPoints)

		if len(report.DanglingTargets) > 0 {
			fmt.Printf("  DANGLING TARGETS: %v\n", report.DanglingTargets)
			exitCode = 1
		}
		for _, ambiguous := range report.AmbiguousRules {
			fmt.Printf("  AMBIGUOUS RULE: %s [%s] -> %v\n",
				ambiguous.FieldRef, ambiguous.AnswerValue, ambiguous.Targets)
			exitCode = 1
		}
		if report.Clean() {
			fmt.Println("  clean")
		}

		if *showMap {
			fmt.Println()
			fmt.Println(renderer.Render(rs))
		}
		fmt.Println()
	}

	os.Exit(exitCode)
}
