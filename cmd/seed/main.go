package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"chantierpro-billing/internal/config"
	"chantierpro-billing/internal/domain/model"
	pg "chantierpro-billing/internal/infra/db/postgres"
	"chantierpro-billing/internal/usecase"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id               TEXT PRIMARY KEY,
	company_name     TEXT NOT NULL,
	email            TEXT NOT NULL,
	commission_model TEXT NOT NULL DEFAULT 'artisan',
	payments_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS plans (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	price_monthly    BIGINT NOT NULL DEFAULT 0,
	price_yearly     BIGINT NOT NULL DEFAULT 0,
	price_monthly_id TEXT NOT NULL DEFAULT '',
	price_yearly_id  TEXT NOT NULL DEFAULT '',
	trial_days       INT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS billing_subscriptions (
	tenant_id                TEXT PRIMARY KEY REFERENCES tenants(id),
	provider_customer_id     TEXT NOT NULL DEFAULT '',
	provider_subscription_id TEXT,
	provider_price_id        TEXT,
	plan_id                  TEXT NOT NULL DEFAULT 'decouverte',
	status                   TEXT NOT NULL DEFAULT 'active',
	billing_interval         TEXT NOT NULL DEFAULT 'monthly',
	current_period_end       TIMESTAMPTZ,
	trial_end                TIMESTAMPTZ,
	cancel_at_period_end     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_billing_subs_customer ON billing_subscriptions (provider_customer_id);
CREATE INDEX IF NOT EXISTS idx_billing_subs_subscription ON billing_subscriptions (provider_subscription_id);

CREATE TABLE IF NOT EXISTS invoice_payment_intents (
	invoice_id          TEXT PRIMARY KEY,
	tenant_id           TEXT NOT NULL REFERENCES tenants(id),
	invoice_number      TEXT NOT NULL,
	token               TEXT NOT NULL UNIQUE,
	total_due           BIGINT NOT NULL,
	amount_paid         BIGINT NOT NULL DEFAULT 0,
	payment_status      TEXT NOT NULL DEFAULT 'unpaid',
	checkout_session_id TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_intents_status_updated ON invoice_payment_intents (payment_status, updated_at);

CREATE TABLE IF NOT EXISTS webhook_events (
	event_id     TEXT PRIMARY KEY,
	event_type   TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (monthly=%d, yearly=%d, trial=%dd)\n", p.Name, p.PriceMonthly, p.PriceYearly, p.TrialDays)
		}
		return
	}

	seed := []struct {
		ID        string
		Name      string
		Monthly   int64
		Yearly    int64
		MonthlyID string
		YearlyID  string
		TrialDays int
	}{
		{model.FreePlanID, "Découverte", 0, 0, "", "", 0},
		{"artisan", "Artisan", 2900, 29_000, "price_artisan_monthly", "price_artisan_yearly", 14},
		{"expert", "Expert", 7900, 79_000, "price_expert_monthly", "price_expert_yearly", 14},
	}

	for _, s := range seed {
		p, err := model.NewPlan(s.ID, s.Name, s.Monthly, s.Yearly, s.MonthlyID, s.YearlyID, s.TrialDays)
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planUC.Create(ctx, p); err != nil {
			log.Fatalf("create plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s)\n", p.Name, p.ID)
	}

	fmt.Println("seeding complete")
}
