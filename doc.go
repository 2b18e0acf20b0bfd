/*
Package doccontext maps Go entity types onto document collections and exposes
them through typed repositories grouped in a context.

A context model is a struct embedding Context with one *Repository field per
entity set. Declare it once:

	type League struct {
	    doccontext.Context
	    Players *doccontext.Repository[Player]
	    Clubs   *doccontext.Repository[Club]
	}

	var leagueModel = doccontext.NewModel[League](
	    doccontext.Set("Players", func(l *League) **doccontext.Repository[Player] { return &l.Players }),
	    doccontext.Set("Clubs", func(l *League) **doccontext.Repository[Club] { return &l.Clubs }),
	).Map("Clubs", "football_clubs")

The first League created from the model registers each entity type with the
class-map registry and the entity registry; later contexts reuse those
mappings. Collections default to the entity type name plus "s", unless the
entity implements CollectionName() or the model maps the set explicitly.

Every repository operation has a blocking form and an Async form returning an
async.Task:

	store, err := doccontext.Open(ctx, cfg, nil)
	league := leagueModel.New(store)

	err = league.Players.Save(ctx, &Player{Name: "Ann"})
	page, err := league.Players.Paginate(ctx, filter.Gte("Rating", 1500), 20, 1)
	task := league.Clubs.CountAsync(ctx, nil)
	n, err := task.Await()

Queries compose without touching the store until a terminal operation runs:

	top, err := league.Players.Where(filter.Eq("Active", true)).
	    OrderByDescending("Rating").
	    Take(10).
	    ToList(ctx)

Drivers for MongoDB, DynamoDB and memory live under datastore/, and
datastore/instrument adds Prometheus metrics and OpenTelemetry spans to any
of them.
*/
package doccontext
