package server

import (
	"encoding/json"
	"net/http"

	"github.com/betbot/transferdesk/internal/session"
	"github.com/betbot/transferdesk/internal/units"
	"github.com/graphql-go/graphql"
)

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// newSchema exposes the session as GraphQL: the same operations as the REST routes.
func (s *Server) newSchema() (graphql.Schema, error) {
	transferType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Transfer",
		Fields: graphql.Fields{
			"addressFrom":     &graphql.Field{Type: graphql.String},
			"addressTo":       &graphql.Field{Type: graphql.String},
			"amount":          &graphql.Field{Type: graphql.String},
			"amountBaseUnits": &graphql.Field{Type: graphql.String},
			"timestamp":       &graphql.Field{Type: graphql.String},
			"timestampUnix":   &graphql.Field{Type: graphql.Float},
			"message":         &graphql.Field{Type: graphql.String},
			"keyword":         &graphql.Field{Type: graphql.String},
		},
	})
	draftType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Draft",
		Fields: graphql.Fields{
			"addressTo": &graphql.Field{Type: graphql.String},
			"amount":    &graphql.Field{Type: graphql.String},
			"keyword":   &graphql.Field{Type: graphql.String},
			"message":   &graphql.Field{Type: graphql.String},
		},
	})
	submissionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Submission",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"status":       &graphql.Field{Type: graphql.String},
			"txHash":       &graphql.Field{Type: graphql.String},
			"recordTxHash": &graphql.Field{Type: graphql.String},
			"error":        &graphql.Field{Type: graphql.String},
		},
	})
	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"account":          &graphql.Field{Type: graphql.String},
			"accountStatus":    &graphql.Field{Type: graphql.String},
			"historyStatus":    &graphql.Field{Type: graphql.String},
			"submissionStatus": &graphql.Field{Type: graphql.String},
			"providerPresent":  &graphql.Field{Type: graphql.Boolean},
			"draft":            &graphql.Field{Type: draftType},
			"lastSubmission":   &graphql.Field{Type: submissionType},
			"transfers":        &graphql.Field{Type: graphql.NewList(transferType)},
			"notices":          &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	snapshot := func(graphql.ResolveParams) (interface{}, error) {
		return snapshotFields(s.session.Snapshot()), nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{Type: sessionType, Resolve: snapshot},
			"transfers": &graphql.Field{
				Type: graphql.NewList(transferType),
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return transferFields(s.session.Snapshot().Transfers), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"connect": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"silent": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					mode := session.AccessInteractive
					if silent, _ := p.Args["silent"].(bool); silent {
						mode = session.AccessSilent
					}
					if err := s.session.RequestAccess(p.Context, mode); err != nil {
						return nil, err
					}
					return snapshot(p)
				},
			},
			"updateDraft": &graphql.Field{
				Type: draftType,
				Args: graphql.FieldConfigArgument{
					"field": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"value": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					field, _ := p.Args["field"].(string)
					value, _ := p.Args["value"].(string)
					if err := s.session.UpdateDraftField(field, value); err != nil {
						return nil, err
					}
					return draftFields(s.session.Snapshot().Draft), nil
				},
			},
			"refreshHistory": &graphql.Field{
				Type: graphql.NewList(transferType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := s.session.RefreshHistory(p.Context); err != nil {
						return nil, err
					}
					return transferFields(s.session.Snapshot().Transfers), nil
				},
			},
			"submitTransfer": &graphql.Field{
				Type: sessionType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := s.session.SubmitTransfer(p.Context); err != nil {
						return nil, err
					}
					return snapshot(p)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func (s *Server) handleGraphQL(schema graphql.Schema) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		writeJSON(w, http.StatusOK, result)
	}
}

func snapshotFields(snap session.Snapshot) map[string]interface{} {
	notices := make([]string, 0, len(snap.Notices))
	for _, n := range snap.Notices {
		notices = append(notices, n.Message)
	}
	out := map[string]interface{}{
		"account":          snap.Account,
		"accountStatus":    string(snap.AccountStatus),
		"historyStatus":    string(snap.HistoryStatus),
		"submissionStatus": string(snap.SubmissionStatus),
		"providerPresent":  snap.ProviderPresent,
		"draft":            draftFields(snap.Draft),
		"transfers":        transferFields(snap.Transfers),
		"notices":          notices,
	}
	if sub := snap.LastSubmission; sub != nil {
		out["lastSubmission"] = map[string]interface{}{
			"id":           sub.ID,
			"status":       string(sub.Status),
			"txHash":       sub.TxHash,
			"recordTxHash": sub.RecordTxHash,
			"error":        sub.Error,
		}
	}
	return out
}

func draftFields(d session.TransferDraft) map[string]interface{} {
	return map[string]interface{}{
		"addressTo": d.AddressTo,
		"amount":    d.Amount,
		"keyword":   d.Keyword,
		"message":   d.Message,
	}
}

func transferFields(records []session.TransferRecord) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(records))
	for _, t := range records {
		out = append(out, map[string]interface{}{
			"addressFrom":     t.AddressFrom,
			"addressTo":       t.AddressTo,
			"amount":          units.FormatEther(t.Amount),
			"amountBaseUnits": t.AmountBaseUnits,
			"timestamp":       t.Timestamp,
			"timestampUnix":   float64(t.TimestampUnix),
			"message":         t.Message,
			"keyword":         t.Keyword,
		})
	}
	return out
}
