// Package autoload registers every channel factory.
package autoload

import (
	_ "supportdesk/pkg/channels/telegram"
	_ "supportdesk/pkg/channels/web"
)
