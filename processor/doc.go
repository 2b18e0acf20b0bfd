/*
Package processor generates context models from YAML manifests.

A manifest names the context type and its entity sets:

	package: league
	context: League
	comment: holds the league's players and clubs.
	imports:
	  - github.com/acme/league/models
	sets:
	  - name: Players
	    type: models.Player
	  - name: Clubs
	    type: models.Club
	    collection: football_clubs

Render turns it into a gofmt-formatted file declaring the League struct, a
LeagueModel built with doccontext.NewModel (plus a Map call per collection
override) and a NewLeague constructor. cmd/docmapgen is the command-line
front end.
*/
package processor
