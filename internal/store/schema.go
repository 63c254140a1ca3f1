package store

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS knowledge (
		id             INTEGER PRIMARY KEY,
		name           TEXT NOT NULL,
		favor_min      INTEGER NOT NULL,
		favor_max      INTEGER NOT NULL,
		interest       REAL NOT NULL,
		combo_delay    INTEGER NOT NULL DEFAULT 0,
		combo_length   INTEGER NOT NULL DEFAULT 0,
		combo_interest INTEGER NOT NULL DEFAULT 0,
		combo_favor    INTEGER NOT NULL DEFAULT 0,
		category_id    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS constellations (
		id         INTEGER PRIMARY KEY,
		slots      INTEGER NOT NULL,
		slot_order TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS targets (
		id               INTEGER PRIMARY KEY,
		name             TEXT NOT NULL,
		constellation_id INTEGER NOT NULL,
		category_id      INTEGER NOT NULL,
		interest_min     INTEGER NOT NULL,
		interest_max     INTEGER NOT NULL,
		favor_min        INTEGER NOT NULL,
		favor_max        INTEGER NOT NULL,
		has_results      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		target_id          INTEGER NOT NULL,
		target_interest    INTEGER NOT NULL,
		target_favor       INTEGER NOT NULL,
		goal               INTEGER NOT NULL,
		goal_param         INTEGER NOT NULL,
		knowledge_ids      TEXT NOT NULL,
		success_percentage REAL NOT NULL,
		strict_afl_ev      REAL NOT NULL,
		version            INTEGER NOT NULL,
		PRIMARY KEY (target_id, target_interest, target_favor, goal, goal_param)
	)`,
	`CREATE TABLE IF NOT EXISTS solved_keys (
		target_id       INTEGER NOT NULL,
		target_interest INTEGER NOT NULL,
		target_favor    INTEGER NOT NULL,
		version         INTEGER NOT NULL,
		solved_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (target_id, target_interest, target_favor)
	)`,
	// stores written before solved_keys existed: every saved key had a free talk row (goal 6)
	`INSERT OR IGNORE INTO solved_keys (target_id, target_interest, target_favor, version)
		SELECT target_id, target_interest, target_favor, version FROM results WHERE goal = 6`,
	`CREATE TABLE IF NOT EXISTS solve_in_progress (
		target_id       INTEGER NOT NULL,
		target_interest INTEGER NOT NULL,
		target_favor    INTEGER NOT NULL,
		owner           TEXT NOT NULL,
		started_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (target_id, target_interest, target_favor)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS knowledge (
		id             INTEGER PRIMARY KEY,
		name           TEXT NOT NULL,
		favor_min      INTEGER NOT NULL,
		favor_max      INTEGER NOT NULL,
		interest       DOUBLE PRECISION NOT NULL,
		combo_delay    INTEGER NOT NULL DEFAULT 0,
		combo_length   INTEGER NOT NULL DEFAULT 0,
		combo_interest INTEGER NOT NULL DEFAULT 0,
		combo_favor    INTEGER NOT NULL DEFAULT 0,
		category_id    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS constellations (
		id         INTEGER PRIMARY KEY,
		slots      INTEGER NOT NULL,
		slot_order TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS targets (
		id               INTEGER PRIMARY KEY,
		name             TEXT NOT NULL,
		constellation_id INTEGER NOT NULL,
		category_id      INTEGER NOT NULL,
		interest_min     INTEGER NOT NULL,
		interest_max     INTEGER NOT NULL,
		favor_min        INTEGER NOT NULL,
		favor_max        INTEGER NOT NULL,
		has_results      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		target_id          INTEGER NOT NULL,
		target_interest    INTEGER NOT NULL,
		target_favor       INTEGER NOT NULL,
		goal               INTEGER NOT NULL,
		goal_param         INTEGER NOT NULL,
		knowledge_ids      TEXT NOT NULL,
		success_percentage DOUBLE PRECISION NOT NULL,
		strict_afl_ev      DOUBLE PRECISION NOT NULL,
		version            INTEGER NOT NULL,
		PRIMARY KEY (target_id, target_interest, target_favor, goal, goal_param)
	)`,
	`CREATE TABLE IF NOT EXISTS solved_keys (
		target_id       INTEGER NOT NULL,
		target_interest INTEGER NOT NULL,
		target_favor    INTEGER NOT NULL,
		version         INTEGER NOT NULL,
		solved_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (target_id, target_interest, target_favor)
	)`,
	// stores written before solved_keys existed: every saved key had a free talk row (goal 6)
	`INSERT INTO solved_keys (target_id, target_interest, target_favor, version)
		SELECT target_id, target_interest, target_favor, version FROM results WHERE goal = 6
		ON CONFLICT DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS solve_in_progress (
		target_id       INTEGER NOT NULL,
		target_interest INTEGER NOT NULL,
		target_favor    INTEGER NOT NULL,
		owner           TEXT NOT NULL,
		started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (target_id, target_interest, target_favor)
	)`,
}

const (
	tblCategories     = "categories"
	tblKnowledge      = "knowledge"
	tblConstellations = "constellations"
	tblTargets        = "targets"
	tblResults        = "results"
	tblLocks          = "solve_in_progress"
	tblSolved         = "solved_keys"

	colID           = "id"
	colName         = "name"
	colTargetID     = "target_id"
	colInterest     = "target_interest"
	colFavor        = "target_favor"
	colGoal         = "goal"
	colGoalParam    = "goal_param"
	colKnowledgeIDs = "knowledge_ids"
	colSuccess      = "success_percentage"
	colStrictEV     = "strict_afl_ev"
	colVersion      = "version"
	colOwner        = "owner"
	colHasResults   = "has_results"
)
