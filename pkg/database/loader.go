package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/models"
	"rfm-segments/pkg/source"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
)

// DefaultTable : table au format de l'export FLO (une ligne par client).
const DefaultTable = "flo_customers"

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb:// ou mysql:// → format MySQL driver
func Open(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, redactDSN(mysqlDSN), nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	// DSN natif : dates en time.Time UTC quelles que soient les options fournies
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// redactDSN masque le mot de passe pour les logs.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	colon := strings.Index(dsn, ":")
	if at < 0 || colon < 0 || colon > at {
		return dsn
	}
	return dsn[:colon+1] + "***" + dsn[at:]
}

// LoadChannelRows lit la table FLO (une ligne par master_id), triée par master_id.
// master_id et colonnes numériques NULL => *calculator.DataQualityError ; dates NULL = absentes.
func LoadChannelRows(ctx context.Context, db *sql.DB, tableName string) ([]models.ChannelRow, error) {
	if !tableNameRe.MatchString(tableName) {
		return nil, fmt.Errorf("table invalide %q", tableName)
	}

	q := fmt.Sprintf(`
		SELECT
			master_id,
			order_channel,
			last_order_channel,
			first_order_date,
			last_order_date,
			last_order_date_online,
			last_order_date_offline,
			order_num_total_ever_online,
			order_num_total_ever_offline,
			customer_value_total_ever_online,
			customer_value_total_ever_offline,
			interested_in_categories_12
		FROM %s
		ORDER BY master_id
	`, tableName)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	var (
		out    []models.ChannelRow
		issues []calculator.RowIssue
	)
	for rows.Next() {
		var (
			id, channel, lastChannel, interests          sql.NullString
			first, last, lastOnline, lastOffline         sql.NullTime
			numOnline, numOffline, valOnline, valOffline sql.NullFloat64
		)
		if err := rows.Scan(
			&id, &channel, &lastChannel,
			&first, &last, &lastOnline, &lastOffline,
			&numOnline, &numOffline, &valOnline, &valOffline,
			&interests,
		); err != nil {
			return nil, err
		}
		line := len(out) + 1
		for col, v := range map[string]bool{
			source.ColMasterID:        id.Valid,
			source.ColOrderNumOnline:  numOnline.Valid,
			source.ColOrderNumOffline: numOffline.Valid,
			source.ColValueOnline:     valOnline.Valid,
			source.ColValueOffline:    valOffline.Valid,
		} {
			if !v {
				issues = append(issues, calculator.RowIssue{Line: line, CustomerID: id.String, Field: col, Reason: "NULL"})
			}
		}
		out = append(out, models.ChannelRow{
			Line:                 line,
			MasterID:             id.String,
			OrderChannel:         channel.String,
			LastOrderChannel:     lastChannel.String,
			FirstOrderDate:       utc(first),
			LastOrderDate:        utc(last),
			LastOrderDateOnline:  utc(lastOnline),
			LastOrderDateOffline: utc(lastOffline),
			OrderNumOnline:       numOnline.Float64,
			OrderNumOffline:      numOffline.Float64,
			ValueOnline:          valOnline.Float64,
			ValueOffline:         valOffline.Float64,
			Interests:            source.ParseInterests(interests.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		sort.SliceStable(issues, func(i, j int) bool {
			if issues[i].Line != issues[j].Line {
				return issues[i].Line < issues[j].Line
			}
			return issues[i].Field < issues[j].Field
		})
		return nil, &calculator.DataQualityError{Issues: issues}
	}

	log.WithFields(log.Fields{"table": tableName, "rows": len(out)}).Debug("channel rows loaded")
	return out, nil
}

func utc(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
