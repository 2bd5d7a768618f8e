package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/victorivanov/mship/internal/auth"
	"github.com/victorivanov/mship/internal/database"
	"github.com/victorivanov/mship/internal/models"
	"github.com/victorivanov/mship/internal/permissions"
	"github.com/victorivanov/mship/internal/redis"
	"github.com/victorivanov/mship/internal/service"
	"github.com/victorivanov/mship/internal/snowflake"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: mship-cli migrate")
			fmt.Println()
			fmt.Println("Run database migrations from the migrations/ directory.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runMigrate())
	case "seed":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: mship-cli seed")
			fmt.Println()
			fmt.Println("Seed demo data: an admin, two members, a ban team role, three bans and notes.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runSeed())
	case "grant", "revoke":
		if hasFlag("--help", os.Args[2:]) || len(os.Args) < 4 {
			fmt.Printf("Usage: mship-cli %s <account_id> <role_id>\n", os.Args[1])
			fmt.Println()
			fmt.Println("Assign or remove a role and drop the account's cached permissions.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			fmt.Println("  REDIS_URL     Permission cache to invalidate (optional)")
			return
		}
		os.Exit(runRoleChange(os.Args[1], os.Args[2], os.Args[3]))
	case "token":
		if hasFlag("--help", os.Args[2:]) || len(os.Args) < 3 {
			fmt.Println("Usage: mship-cli token <account_id>")
			fmt.Println()
			fmt.Println("Mint an access token for an account.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  JWT_SECRET  Signing secret shared with the server (required)")
			return
		}
		os.Exit(runToken(os.Args[2]))
	case "health":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: mship-cli health")
			fmt.Println()
			fmt.Println("Check if the mship server is running.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL  Server base URL (default: http://localhost:8080)")
			return
		}
		os.Exit(runHealth())
	case "version":
		fmt.Printf("mship-cli %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mship-cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate  Run database migrations")
	fmt.Println("  seed     Seed demo accounts, roles, bans and notes")
	fmt.Println("  grant    Assign a role to an account")
	fmt.Println("  revoke   Remove a role from an account")
	fmt.Println("  token    Mint an access token for an account")
	fmt.Println("  health   Check if the server is running")
	fmt.Println("  version  Print version info")
	fmt.Println()
	fmt.Println("Run 'mship-cli <command> --help' for details on a command.")
}

func hasFlag(flag string, args []string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- migrate ---

func runMigrate() int {
	dbURL := requireEnv("DATABASE_URL")

	fmt.Println("connecting to database...")
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: migration init failed: %v\n", err)
		return 1
	}
	defer m.Close()

	fmt.Println("running migrations...")
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		fmt.Fprintf(os.Stderr, "error: migration failed: %v\n", err)
		return 1
	}

	v, dirty, _ := m.Version()
	if err == migrate.ErrNoChange {
		fmt.Printf("no new migrations (current version: %d)\n", v)
	} else {
		fmt.Printf("migrations applied (version: %d, dirty: %v)\n", v, dirty)
	}
	return 0
}

// --- seed ---

func runSeed() int {
	dbURL := requireEnv("DATABASE_URL")
	ctx := context.Background()

	fmt.Println("connecting to database...")
	pool, err := database.NewPostgresPool(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: database ping failed: %v\n", err)
		return 1
	}

	sf, err := snowflake.NewGenerator(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: snowflake init failed: %v\n", err)
		return 1
	}

	accounts := database.NewAccountRepository(pool)
	roles := database.NewRoleRepository(pool)
	bans := database.NewBanRepository(pool)
	notes := database.NewNoteRepository(pool)

	now := time.Now().UTC()

	// Accounts.
	fmt.Println("creating accounts...")
	admin := &models.Account{ID: sf.Generate(), Name: "Admin", Email: "admin@example.org", CreatedAt: now}
	alice := &models.Account{ID: sf.Generate(), Name: "Alice", Email: "alice@example.org", CreatedAt: now}
	bob := &models.Account{ID: sf.Generate(), Name: "Bob", Email: "bob@example.org", CreatedAt: now}
	for _, a := range []*models.Account{admin, alice, bob} {
		if err := accounts.Create(ctx, a); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating account %s: %v\n", a.Name, err)
			return 1
		}
	}

	// Ban team role.
	fmt.Println("creating ban team role...")
	team := &models.Role{
		ID:   sf.Generate(),
		Name: "ban-team-" + strconv.FormatInt(now.Unix(), 10),
		Permissions: []string{
			permissions.Path("adm/mship/account", permissions.Wildcard, "bans"),
			permissions.Path("adm/mship/account", permissions.Wildcard, "note/create"),
			permissions.Path("adm/mship/ban", permissions.Wildcard, "repeal"),
			permissions.Path("adm/mship/ban", permissions.Wildcard, "modify"),
		},
	}
	if err := roles.Create(ctx, team); err != nil {
		fmt.Fprintf(os.Stderr, "error: creating role: %v\n", err)
		return 1
	}
	if err := roles.Assign(ctx, admin.ID, team.ID); err != nil {
		fmt.Fprintf(os.Stderr, "error: assigning role: %v\n", err)
		return 1
	}

	// Bans.
	fmt.Println("creating bans...")
	week := now.Add(7 * 24 * time.Hour)
	lastMonth := now.Add(-30 * 24 * time.Hour)
	lastMonthEnd := lastMonth.Add(3 * 24 * time.Hour)
	seeded := []*models.Ban{
		{
			ID: sf.Generate(), AccountID: alice.ID, BannedBy: admin.ID, Type: models.BanTypeLocal,
			Reason: "Repeated spam in the forums", PeriodAmount: 7, PeriodUnit: models.PeriodDays,
			PeriodStart: now, PeriodFinish: &week,
		},
		{
			ID: sf.Generate(), AccountID: alice.ID, BannedBy: admin.ID, Type: models.BanTypeLocal,
			Reason: "Impersonating staff", PeriodAmount: 3, PeriodUnit: models.PeriodDays,
			PeriodStart: lastMonth, PeriodFinish: &lastMonthEnd,
		},
		{
			ID: sf.Generate(), AccountID: bob.ID, BannedBy: admin.ID, Type: models.BanTypeNetwork,
			Reason: "Network-wide ban", ReasonExtra: "<a href=\"/policies/conduct\">Code of conduct</a>",
			PeriodStart: now,
		},
	}
	for _, b := range seeded {
		b.CreatedAt, b.UpdatedAt = b.PeriodStart, b.PeriodStart
		if err := bans.Create(ctx, b); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating ban: %v\n", err)
			return 1
		}
	}

	// Notes.
	fmt.Println("creating notes...")
	for i, content := range []string{"First warning issued by email.", "User acknowledged the warning."} {
		banID := seeded[0].ID
		n := &models.Note{
			ID: sf.Generate(), AccountID: alice.ID, BanID: &banID, WriterID: admin.ID,
			Content: content, CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := notes.Create(ctx, n); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating note: %v\n", err)
			return 1
		}
	}

	fmt.Println()
	fmt.Println("seed complete:")
	fmt.Printf("  admin:    %s (id %d, role %s)\n", admin.Name, admin.ID, team.Name)
	fmt.Printf("  accounts: %s (id %d), %s (id %d)\n", alice.Name, alice.ID, bob.Name, bob.ID)
	fmt.Printf("  bans:     %d (active ban ends %s)\n", len(seeded), humanize.Time(week))
	fmt.Printf("  token:    mship-cli token %d\n", admin.ID)
	return 0
}

// --- grant / revoke ---

func runRoleChange(cmd, accountArg, roleArg string) int {
	accountID, err := strconv.ParseInt(accountArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid account id %q\n", accountArg)
		return 1
	}
	roleID, err := strconv.ParseInt(roleArg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid role id %q\n", roleArg)
		return 1
	}

	dbURL := requireEnv("DATABASE_URL")
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	var cache service.PermissionCache
	if url := os.Getenv("REDIS_URL"); url != "" {
		rc, err := redis.NewClient(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: redis connection failed: %v\n", err)
			return 1
		}
		defer rc.Close()
		cache = rc
	}
	loader := service.NewPermissionLoader(database.NewRoleRepository(pool), cache, nil)

	change := loader.AssignRole
	if cmd == "revoke" {
		change = loader.RevokeRole
	}
	if err := change(ctx, accountID, roleID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s failed: %v\n", cmd, err)
		return 1
	}
	fmt.Printf("%s: account %d, role %d\n", cmd, accountID, roleID)
	return 0
}

// --- token ---

func runToken(arg string) int {
	secret := requireEnv("JWT_SECRET")

	accountID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || accountID <= 0 {
		fmt.Fprintf(os.Stderr, "error: invalid account id %q\n", arg)
		return 1
	}

	ts := auth.NewTokenService(secret, 0)
	token, err := ts.GenerateAccessToken(accountID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: signing token: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "token for account %d, valid for %s\n", accountID, ts.AccessExpiry())
	fmt.Println(token)
	return 0
}

// --- health ---

func runHealth() int {
	serverURL := envOr("SERVER_URL", "http://localhost:8080")
	url := serverURL + "/health"

	fmt.Printf("checking %s ...\n", url)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status: %d\n", resp.StatusCode)
	if len(body) > 0 {
		fmt.Printf("body:   %s\n", string(body))
	}

	if resp.StatusCode == http.StatusOK {
		fmt.Println("server is healthy")
		return 0
	}
	fmt.Fprintln(os.Stderr, "server returned non-200 status")
	return 1
}
