// Package web provides API routes for the web server.
package web

import (
	"net/http"
	"regexp"
	"time"

	"github.com/PancyStudios/HelperBot/pkg/discord"
	"github.com/PancyStudios/HelperBot/pkg/metrics"
	"github.com/PancyStudios/HelperBot/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
)

// BotInfo is the part of the Discord client the API reports on
type BotInfo interface {
	IsReady() bool
	GuildCount() int
	Latency() time.Duration
	Uptime() time.Duration
	BotUser() *discordgo.User
}

// StatusProvider reports a component status string and whether it is online
type StatusProvider interface {
	GetStatus() (string, bool)
}

// CommandSource lists the registered root commands
type CommandSource interface {
	All() []*discord.Command
}

// TagSource lists the tags of a guild
type TagSource interface {
	List(guildID string) ([]*models.Tag, error)
}

// Dependencies are the components the API reads from. Nil fields make
// their routes answer 503.
type Dependencies struct {
	Bot      BotInfo
	Database StatusProvider
	Commands CommandSource
	Tags     TagSource
	Metrics  *metrics.Metrics
	Version  string
}

var guildIDPattern = regexp.MustCompile(`^\d{15,21}$`)

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, deps Dependencies) {
	api := s.Group("/api")
	{
		api.GET("/status", statusHandler(deps))
		api.GET("/health", healthHandler(deps))
		api.GET("/bot", botInfoHandler(deps))
		api.GET("/commands", commandsHandler(deps))
		api.GET("/guilds/:id/tags", guildTagsHandler(deps))
	}

	if deps.Metrics != nil {
		s.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Service Unavailable",
		"message": what + " no está disponible en este momento.",
		"status":  http.StatusServiceUnavailable,
	})
}

// statusHandler returns the bot and database status
func statusHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus, dbOnline := "No configurada", false
		if deps.Database != nil {
			dbStatus, dbOnline = deps.Database.GetStatus()
		}

		bot := gin.H{"isOnline": false}
		if deps.Bot != nil {
			bot = gin.H{
				"isOnline":  deps.Bot.IsReady(),
				"guilds":    deps.Bot.GuildCount(),
				"latencyMs": deps.Bot.Latency().Milliseconds(),
				"uptime":    deps.Bot.Uptime().Round(time.Second).String(),
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"database": gin.H{
				"status":   dbStatus,
				"isOnline": dbOnline,
			},
			"bot": bot,
		})
	}
}

// healthHandler returns a simple health check response
func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "HelperBot is running",
			"version": deps.Version,
		})
	}
}

// botInfoHandler returns information about the bot
func botInfoHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Bot == nil || !deps.Bot.IsReady() || deps.Bot.BotUser() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Bot Offline",
				"message": "El bot no está disponible en este momento.",
			})
			return
		}

		user := deps.Bot.BotUser()

		c.JSON(http.StatusOK, gin.H{
			"id":            user.ID,
			"username":      user.Username,
			"discriminator": user.Discriminator,
			"avatar":        user.Avatar,
			"guilds":        deps.Bot.GuildCount(),
			"isReady":       deps.Bot.IsReady(),
		})
	}
}

// commandsHandler lists the public command tree
func commandsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Commands == nil {
			unavailable(c, "La lista de comandos")
			return
		}

		commands := discord.DescribeCommands(deps.Commands.All())

		c.JSON(http.StatusOK, gin.H{
			"count":    len(commands),
			"commands": commands,
		})
	}
}

// guildTagsHandler lists the tags of a guild
func guildTagsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Tags == nil {
			unavailable(c, "El sistema de tags")
			return
		}

		guildID := c.Param("id")
		if !guildIDPattern.MatchString(guildID) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "El ID del servidor no es válido.",
				"status":  http.StatusBadRequest,
			})
			return
		}

		tags, err := deps.Tags.List(guildID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "No se pudieron obtener los tags.",
				"status":  http.StatusInternalServerError,
			})
			return
		}
		if tags == nil {
			tags = []*models.Tag{}
		}

		c.JSON(http.StatusOK, gin.H{
			"guildId": guildID,
			"count":   len(tags),
			"tags":    tags,
		})
	}
}
