package models

import (
	"fmt"
	"time"
)

/*
LOAD → types simples pour charger les données brutes (CSV ou base de données).
*/

// ChannelRow représente une ligne brute de l'export FLO, un client avec ses totaux par canal.
type ChannelRow struct {
	Line                 int // ligne du fichier (en-tête = 1) ou rang de la ligne SQL
	MasterID             string
	OrderChannel         string
	LastOrderChannel     string
	FirstOrderDate       time.Time
	LastOrderDate        time.Time
	LastOrderDateOnline  time.Time
	LastOrderDateOffline time.Time
	OrderNumOnline       float64
	OrderNumOffline      float64
	ValueOnline          float64
	ValueOffline         float64
	Interests            []string // interested_in_categories_12
}

// CustomerAggregate regroupe les deux canaux (online + offline) d'un client.
type CustomerAggregate struct {
	CustomerID       string
	LastActivityDate time.Time
	TotalOrders      int
	TotalValue       float64
	InterestTags     []string
	OrderChannel     string
	Line             int
}

// HasInterest indique si le client porte exactement le tag demandé.
func (c CustomerAggregate) HasInterest(tag string) bool {
	for _, t := range c.InterestTags {
		if t == tag {
			return true
		}
	}
	return false
}

/*
COMPUTE → résultat du moteur RFM, un enregistrement par client
*/

// Segment est l'un des dix segments marketing issus du couple (recency_score, frequency_score).
type Segment string

const (
	SegmentHibernating        Segment = "hibernating"
	SegmentAtRisk             Segment = "at_risk"
	SegmentCantLoose          Segment = "cant_loose"
	SegmentAboutToSleep       Segment = "about_to_sleep"
	SegmentNeedAttention      Segment = "need_attention"
	SegmentLoyalCustomers     Segment = "loyal_customers"
	SegmentPromising          Segment = "promising"
	SegmentNewCustomers       Segment = "new_customers"
	SegmentPotentialLoyalists Segment = "potential_loyalists"
	SegmentChampions          Segment = "champions"
)

// AllSegments liste les segments dans l'ordre de priorité de la table de classification.
var AllSegments = []Segment{
	SegmentHibernating,
	SegmentAtRisk,
	SegmentCantLoose,
	SegmentAboutToSleep,
	SegmentNeedAttention,
	SegmentLoyalCustomers,
	SegmentPromising,
	SegmentNewCustomers,
	SegmentPotentialLoyalists,
	SegmentChampions,
}

// ParseSegment retourne le segment correspondant au nom, ou false s'il est inconnu.
func ParseSegment(name string) (Segment, bool) {
	for _, s := range AllSegments {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// RFMRecord contient les métriques et scores calculés pour un client.
type RFMRecord struct {
	CustomerID     string  `json:"customer_id"`
	Recency        int     `json:"recency"`   // jours entre la date d'analyse et la dernière commande
	Frequency      int     `json:"frequency"` // total_orders
	Monetary       float64 `json:"monetary"`  // total_value
	RecencyScore   int     `json:"recency_score"`
	FrequencyScore int     `json:"frequency_score"`
	MonetaryScore  int     `json:"monetary_score"`
	Segment        Segment `json:"segment"`
}

// RFScore retourne la clé "RF" (ex: "51") utilisée dans les rapports.
func (r RFMRecord) RFScore() string {
	return fmt.Sprintf("%d%d", r.RecencyScore, r.FrequencyScore)
}

/*
REPORT → agrégats d'inspection exportés avec le run
*/

// SegmentSummary contient le nombre de clients et les moyennes R/F/M d'un segment.
type SegmentSummary struct {
	Segment       Segment `json:"segment" yaml:"segment"`
	Count         int     `json:"count" yaml:"count"`
	MeanRecency   float64 `json:"mean_recency" yaml:"mean_recency"`
	MeanFrequency float64 `json:"mean_frequency" yaml:"mean_frequency"`
	MeanMonetary  float64 `json:"mean_monetary" yaml:"mean_monetary"`
}

// ChannelSummary répartit clients, commandes et valeur par canal de commande.
type ChannelSummary struct {
	Channel    string  `json:"channel" yaml:"channel"`
	Customers  int     `json:"customers" yaml:"customers"`
	Orders     int     `json:"orders" yaml:"orders"`
	TotalValue float64 `json:"total_value" yaml:"total_value"`
}

// Report est le résultat complet d'un run, exporté en JSON ou YAML.
type Report struct {
	RunID        string           `json:"run_id" yaml:"run_id"`
	AnalysisDate string           `json:"analysis_date" yaml:"analysis_date"`
	Customers    int              `json:"customers" yaml:"customers"`
	Segments     []SegmentSummary `json:"segments" yaml:"segments"`
	Channels     []ChannelSummary `json:"channels" yaml:"channels"`
	TopByValue   []CustomerRank   `json:"top_by_value" yaml:"top_by_value"`
	TopByOrders  []CustomerRank   `json:"top_by_orders" yaml:"top_by_orders"`
	TargetRule   TargetRule       `json:"target_rule" yaml:"target_rule"`
	Targets      int              `json:"targets" yaml:"targets"`
}

// CustomerRank est une ligne des classements "top clients".
type CustomerRank struct {
	CustomerID string  `json:"customer_id" yaml:"customer_id"`
	Orders     int     `json:"orders" yaml:"orders"`
	Value      float64 `json:"value" yaml:"value"`
}

// TargetRule décrit la requête de ciblage (segments + tag d'intérêt).
type TargetRule struct {
	Segments []Segment `json:"segments" yaml:"segments"`
	Interest string    `json:"interest" yaml:"interest"`
}

/*
CONFIG → paramètres globaux
*/

// Config contient les paramètres passés au moteur.
type Config struct {
	RunID        string
	AnalysisDate time.Time  // date de référence, >= toute last_activity_date
	Target       TargetRule // segments ciblés + tag requis
	TopN         int        // taille des classements du rapport (0 = aucun)
	Verbose      bool       // barre de progression
}
