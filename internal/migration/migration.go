package migration

// Create builds a fresh database. Later additions go through
// store.ensureSchema so existing databases pick them up too.
const Create = `
CREATE TABLE IF NOT EXISTS Rater (
  id TEXT PRIMARY KEY,
  name TEXT,
  email TEXT,
  color_key TEXT,
  created_at DATETIME
);

CREATE TABLE IF NOT EXISTS Target (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL DEFAULT '',
  tmdb_id TEXT,
  title TEXT,
  year INTEGER,
  poster_path TEXT,
  overview TEXT,
  overall_average REAL,
  created_by TEXT,
  created_at DATETIME
);

CREATE TABLE IF NOT EXISTS Viewing (
  id TEXT PRIMARY KEY,
  target TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT '',
  rater TEXT NOT NULL,
  watched_on TEXT,
  season INTEGER,
  episode INTEGER,
  episode_label TEXT,
  ratings TEXT,
  would_watch_again INTEGER NOT NULL DEFAULT 0,
  would_recommend INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  inserted_at DATETIME
);

CREATE INDEX IF NOT EXISTS ViewingTarget ON Viewing (target);
CREATE INDEX IF NOT EXISTS ViewingRater ON Viewing (rater);

CREATE TABLE IF NOT EXISTS Report (
  user TEXT,
  name TEXT,
  email TEXT,
  run_day INTEGER,
  sets TEXT,
  dimension TEXT,
  top_n INTEGER,
  sent DATETIME,
  PRIMARY KEY (user, name, email)
);
`
