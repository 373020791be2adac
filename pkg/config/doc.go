/*
Package config loads the user's default options for edir.

	            +-------------+
	            |   Config    |
	            | (defaults)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Finds the config file in the XDG config directories
- Parses it with the parser registered for its extension
- Validates values before they reach the command line layer

🔄 Flow:
1. Locate searches $XDG_CONFIG_HOME/edir then $XDG_CONFIG_DIRS for
   config.yaml, config.yml, config.hcl and config.json
2. Load reads the file and picks a parser by extension
3. Unknown keys are rejected by every parser
4. Flags given on the command line override what the file sets

🔍 Example:

	# ~/.config/edir/config.yaml
	all: true
	recurse: true
	sort: time
	group_dirs: first
	ignore:
	  - ".git"
	  - "node_modules"
	  - "*.pyc"
*/
package config
