package catalog

import (
	"database/sql"
	"time"

	"mocap/internal/logging"
)

const runColumns = "id, source_path, source_file, source_sha256, output_dir, status, error_message, clip_count, started_at, finished_at"

const clipColumns = "id, run_id, source_file, subject, style, start_frame, end_frame, frames, path, sha256, created_at"

type scanner interface{ Scan(dest ...any) error }

func scanRun(s scanner) (*Run, error) {
	var (
		run         Run
		status      string
		sha         sql.NullString
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := s.Scan(
		&run.ID,
		&run.SourcePath,
		&run.SourceFile,
		&sha,
		&run.OutputDir,
		&status,
		&errorMsg,
		&run.ClipCount,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.SourceSHA256 = sha.String
	run.ErrorMessage = errorMsg.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return &run, nil
}

func scanClip(s scanner) (*Clip, error) {
	var (
		clip       Clip
		subject    sql.NullString
		createdRaw string
	)
	if err := s.Scan(
		&clip.ID,
		&clip.RunID,
		&clip.SourceFile,
		&subject,
		&clip.Style,
		&clip.Start,
		&clip.End,
		&clip.Frames,
		&clip.Path,
		&clip.SHA256,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	clip.Subject = subject.String
	clip.CreatedAt = parseTime(createdRaw)
	return &clip, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(logging.TimeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(logging.TimeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
