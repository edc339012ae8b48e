package repository

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS officers (
    id                         INTEGER PRIMARY KEY AUTOINCREMENT,
    name                       TEXT NOT NULL,
    badge_number               TEXT NOT NULL UNIQUE,
    grade                      TEXT NOT NULL DEFAULT '',
    body_cam_percent           REAL NOT NULL DEFAULT 0,
    patrol_feedback            REAL NOT NULL DEFAULT 0,
    complaint_count            INTEGER NOT NULL DEFAULT 0,
    arrests_made               INTEGER NOT NULL DEFAULT 0,
    use_of_force_incidents     INTEGER NOT NULL DEFAULT 0,
    training_score             REAL NOT NULL DEFAULT 0,
    avg_response_time_peak_hrs REAL NOT NULL DEFAULT 0,
    geo_patrol_coverage_index  REAL NOT NULL DEFAULT 0,
    public_feedback_score      REAL NOT NULL DEFAULT 0,
    officer_absenteeism_rate   REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scores (
    officer_id INTEGER PRIMARY KEY REFERENCES officers(id),
    score      REAL NOT NULL DEFAULT 0,
    rank       INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(rank);

CREATE TABLE IF NOT EXISTS rank_logs (
    id                         INTEGER PRIMARY KEY AUTOINCREMENT,
    officer_id                 INTEGER NOT NULL REFERENCES officers(id),
    rank                       INTEGER NOT NULL,
    score                      REAL NOT NULL,
    logged_at                  DATETIME NOT NULL,
    body_cam_percent           REAL NOT NULL DEFAULT 0,
    patrol_feedback            REAL NOT NULL DEFAULT 0,
    complaint_count            INTEGER NOT NULL DEFAULT 0,
    arrests_made               INTEGER NOT NULL DEFAULT 0,
    use_of_force_incidents     INTEGER NOT NULL DEFAULT 0,
    training_score             REAL NOT NULL DEFAULT 0,
    avg_response_time_peak_hrs REAL NOT NULL DEFAULT 0,
    geo_patrol_coverage_index  REAL NOT NULL DEFAULT 0,
    public_feedback_score      REAL NOT NULL DEFAULT 0,
    officer_absenteeism_rate   REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rank_logs_officer_time ON rank_logs(officer_id, logged_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS officers (
    id                         BIGSERIAL PRIMARY KEY,
    name                       TEXT NOT NULL,
    badge_number               TEXT NOT NULL UNIQUE,
    grade                      TEXT NOT NULL DEFAULT '',
    body_cam_percent           DOUBLE PRECISION NOT NULL DEFAULT 0,
    patrol_feedback            DOUBLE PRECISION NOT NULL DEFAULT 0,
    complaint_count            INTEGER NOT NULL DEFAULT 0,
    arrests_made               INTEGER NOT NULL DEFAULT 0,
    use_of_force_incidents     INTEGER NOT NULL DEFAULT 0,
    training_score             DOUBLE PRECISION NOT NULL DEFAULT 0,
    avg_response_time_peak_hrs DOUBLE PRECISION NOT NULL DEFAULT 0,
    geo_patrol_coverage_index  DOUBLE PRECISION NOT NULL DEFAULT 0,
    public_feedback_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    officer_absenteeism_rate   DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scores (
    officer_id BIGINT PRIMARY KEY REFERENCES officers(id),
    score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    rank       INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(rank);

CREATE TABLE IF NOT EXISTS rank_logs (
    id                         BIGSERIAL PRIMARY KEY,
    officer_id                 BIGINT NOT NULL REFERENCES officers(id),
    rank                       INTEGER NOT NULL,
    score                      DOUBLE PRECISION NOT NULL,
    logged_at                  TIMESTAMPTZ NOT NULL,
    body_cam_percent           DOUBLE PRECISION NOT NULL DEFAULT 0,
    patrol_feedback            DOUBLE PRECISION NOT NULL DEFAULT 0,
    complaint_count            INTEGER NOT NULL DEFAULT 0,
    arrests_made               INTEGER NOT NULL DEFAULT 0,
    use_of_force_incidents     INTEGER NOT NULL DEFAULT 0,
    training_score             DOUBLE PRECISION NOT NULL DEFAULT 0,
    avg_response_time_peak_hrs DOUBLE PRECISION NOT NULL DEFAULT 0,
    geo_patrol_coverage_index  DOUBLE PRECISION NOT NULL DEFAULT 0,
    public_feedback_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    officer_absenteeism_rate   DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rank_logs_officer_time ON rank_logs(officer_id, logged_at);
`

const metricColumns = `body_cam_percent, patrol_feedback, complaint_count, arrests_made,
    use_of_force_incidents, training_score, avg_response_time_peak_hrs,
    geo_patrol_coverage_index, public_feedback_score, officer_absenteeism_rate`

const metricNamedValues = `:body_cam_percent, :patrol_feedback, :complaint_count, :arrests_made,
    :use_of_force_incidents, :training_score, :avg_response_time_peak_hrs,
    :geo_patrol_coverage_index, :public_feedback_score, :officer_absenteeism_rate`
